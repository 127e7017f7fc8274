package sessions

import "errors"

var ErrNoSession = errors.New("no stored session")

// Store persists the single current session. Implementations replace the
// stored session as a whole on Save.
type Store interface {
	// Load returns the stored session, or ErrNoSession
	Load() (*Session, error)

	// Save replaces the stored session
	Save(session *Session) error

	// Clear removes every stored field; clearing an empty store is not an error
	Clear() error
}
