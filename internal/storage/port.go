// Package storage defines the key-value port the anonymous session and the
// local history store persist through. Callers depend on the Port interface,
// never on a concrete backend, so tests can swap in an in-memory fake and the
// API layer can back the session with a cookie.
package storage

// Port is a minimal text key-value store.
// Get reports found=false (not an error) when the key is absent.
type Port interface {
	Get(key string) (value string, found bool, err error)
	Set(key, value string) error
	Remove(key string) error
}
