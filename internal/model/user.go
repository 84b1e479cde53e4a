package model

import "time"

// User represents an application user as stored in the `users` table.
// The password hash is never serialized; handlers return users directly
// so the json tags mirror the public API field names.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Name         – display name shown on reports.
//	Username     – unique login name, also embedded in upload filenames.
//	PasswordHash – bcrypt hashed password.
//	Role         – one of "admin", "staff" or "user".
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `json:"id"`        // users.id
	Name         string    `json:"name"`      // users.name
	Username     string    `json:"username"`  // users.username
	PasswordHash string    `json:"-"`         // users.password_hash
	Role         string    `json:"role"`      // users.role
	CreatedAt    time.Time `json:"createdAt"` // users.created_at
	UpdatedAt    time.Time `json:"updatedAt"` // users.updated_at
}

// Roles accepted by the API.  Stored as plain strings in the users table.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

// ValidRole reports whether the given role name is one the API accepts.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff || role == RoleUser
}
