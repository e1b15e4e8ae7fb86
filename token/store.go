package token

// Names of the persisted tokens. The session layer touches no other keys.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Store persists named tokens across process restarts.
// Implementations never fail: when the durable medium is unavailable a read
// reports the token as absent and a write is dropped with a warning.
type Store interface {
	// Get returns the token stored under name, ok is false when absent
	Get(name string) (value string, ok bool)

	// Set stores value under name
	Set(name, value string)

	// Clear removes the token stored under name
	Clear(name string)
}
