package models

// User is a row of usuarios joined with its role name.
//
// PasswordHash is either a bcrypt hash or, for accounts created through an
// external provider, a placeholder that never verifies.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	RoleID       int64
	RoleName     string
}

// UserSummary is the public view of a user returned after login.
type UserSummary struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     int64  `json:"role"`
	RoleName string `json:"role_name"`
}

// Summary drops the credential.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Role: u.RoleID, RoleName: u.RoleName}
}

// Credential is the minimal projection used by the password maintenance
// command.
type Credential struct {
	UserID       int64
	PasswordHash string
}
