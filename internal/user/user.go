// Package user defines the user model used throughout the application,
// particularly for authentication and per-product ownership snapshots.
package user

// User represents a registered account.
//
// The password is stored and compared in clear text. This mirrors the
// behavior of the system being replaced and is a known weakness, kept so
// existing snapshot files stay readable.
type User struct {
	// ID is the unique identifier of the user, derived from creation time.
	ID string `json:"id"`

	// Email is the unique lookup key used at login.
	Email string `json:"email"`

	Password string `json:"password"`

	Name  string `json:"name"`
	Phone string `json:"phone"`
}
