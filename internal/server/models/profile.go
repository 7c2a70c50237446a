package models

// Profile is the personal data attached one-to-one to a user. Only the
// columns the API writes are modelled.
type Profile struct {
	UserID    int64
	Nombre    string
	Apellido1 string
}
