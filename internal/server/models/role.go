package models

// Role is a row of roles.
type Role struct {
	ID   int64  `json:"id_rol"`
	Name string `json:"tipo"`
}
