// Package session is the in-process session authority: it issues opaque
// tokens, maps them to identity snapshots and forgets them on logout or
// process exit.
//
// Sessions do not expire.
package session

// Identity is the snapshot of a user that a session carries.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Store abstracts session CRUD. Implementations must be safe for concurrent
// use, and each method must be atomic with respect to the others.
type Store interface {
	// Create stores id under a freshly generated token and returns the token.
	// It fails only when the random source fails.
	Create(id Identity) (string, error)
	// Get resolves a token. Unknown, empty and malformed tokens return false.
	Get(token string) (Identity, bool)
	// Delete removes a session. Deleting an unknown token is a no-op.
	Delete(token string)
	// Update applies fn to the stored identity. It returns false if the
	// token is unknown.
	Update(token string, fn func(*Identity)) bool
	// UpdateUser applies fn to every session of userID and returns how many
	// sessions it touched.
	UpdateUser(userID int64, fn func(*Identity)) int
	// Len returns the number of live sessions.
	Len() int
}

// RenameUser sets the name carried by every live session of userID.
func RenameUser(s Store, userID int64, name string) int {
	return s.UpdateUser(userID, func(id *Identity) { id.Name = name })
}
