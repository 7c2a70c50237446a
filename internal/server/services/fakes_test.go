package services

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/xchange-erasmus/xchange-api/internal/common"
	"github.com/xchange-erasmus/xchange-api/internal/dbx"
	"github.com/xchange-erasmus/xchange-api/internal/logging"
	"github.com/xchange-erasmus/xchange-api/internal/server/auth"
	"github.com/xchange-erasmus/xchange-api/internal/server/models"
	"github.com/xchange-erasmus/xchange-api/internal/server/oauth"
	profilesrepo "github.com/xchange-erasmus/xchange-api/internal/server/repositories/profiles"
	rolesrepo "github.com/xchange-erasmus/xchange-api/internal/server/repositories/roles"
	usersrepo "github.com/xchange-erasmus/xchange-api/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	s, err := auth.NewTokenService("test-secret", 15*time.Minute, auth.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("NewTokenService error: %v", err)
	}
	return s
}

// fakeUsersRepo keeps users in memory; email uniqueness is enforced the way
// the unique index does it.
type fakeUsersRepo struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	nextID  int64
	roles   map[string]int64

	getErr    error
	createErr error
	listErr   error
	updateErr error

	creates int
	updates map[int64]string
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	f := &fakeUsersRepo{
		byEmail: map[string]*models.User{},
		nextID:  100,
		roles:   map[string]int64{"Administrador": 1, "Profesor": 2, "Alumno": 3},
		updates: map[int64]string{},
	}
	for _, u := range users {
		f.byEmail[u.Email] = u
	}
	return f
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) CreateExternal(ctx context.Context, email, placeholder, roleName string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, false, f.createErr
	}
	roleID, ok := f.roles[roleName]
	if !ok {
		return 0, false, nil
	}
	if _, exists := f.byEmail[email]; exists {
		return 0, false, nil
	}
	f.nextID++
	f.creates++
	f.byEmail[email] = &models.User{ID: f.nextID, Email: email, PasswordHash: placeholder, RoleID: roleID, RoleName: roleName}
	return f.nextID, true, nil
}

func (f *fakeUsersRepo) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Credential
	for _, u := range f.byEmail {
		out = append(out, models.Credential{UserID: u.ID, PasswordHash: u.PasswordHash})
	}
	slices.SortFunc(out, func(a, b models.Credential) int { return int(a.UserID - b.UserID) })
	return out, nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, u := range f.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			f.updates[id] = hash
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeProfilesRepo struct {
	mu      sync.Mutex
	created []models.Profile
	err     error
}

func (f *fakeProfilesRepo) Create(ctx context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *p)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	p *fakeProfilesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) ([]int64, error) { return nil, nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Profiles(db dbx.DBTX) profilesrepo.Repository { return m.p }
func (m *fakeRepoManager) Roles(db dbx.DBTX) rolesrepo.Repository       { return nil }

type fakeProvider struct {
	exchangeToken string
	exchangeErr   error
	profile       *oauth.Profile
	profileErr    error

	gotCode  string
	gotToken string
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (string, error) {
	p.gotCode = code
	return p.exchangeToken, p.exchangeErr
}

func (p *fakeProvider) FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	p.gotToken = accessToken
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	return p.profile, nil
}

func nopLogger() logging.Logger { return logging.NewNopLogger() }
