package types

// AuthenticationToken is a consolidation of a subject's identifying
// principal and supporting credentials submitted during an authentication
// attempt. Realms inspect the concrete type to decide whether they can
// handle it.
type AuthenticationToken interface {
	// TokenPrincipal is the identifying attribute submitted with the
	// attempt (usually a username), empty when the credential is
	// self-describing (e.g. a signed bearer token)
	TokenPrincipal() string

	// TokenCredentials is the proof submitted with the attempt
	TokenCredentials() string
}

// UsernamePasswordToken is the common username/password authentication token
type UsernamePasswordToken struct {
	Username string
	Password string
}

func (t *UsernamePasswordToken) TokenPrincipal() string   { return t.Username }
func (t *UsernamePasswordToken) TokenCredentials() string { return t.Password }

// BearerToken wraps a self-describing signed credential such as a JWT
type BearerToken struct {
	Token string
}

func (t *BearerToken) TokenPrincipal() string   { return "" }
func (t *BearerToken) TokenCredentials() string { return t.Token }
