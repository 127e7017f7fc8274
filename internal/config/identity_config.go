package config

type IdentityConfig interface {
	GetIdentityIssuer() string
	GetIdentityAudience() string
	GetVerifyIdentityTokens() bool
}

type Identity struct{}

var _ IdentityConfig = Identity{}

// GetIdentityIssuer is the OIDC issuer of the sign-in provider,
// e.g. "https://securetoken.google.com/<project-id>".
func (Identity) GetIdentityIssuer() string {
	return GetEnv("IDENTITY_ISSUER", "https://accounts.google.com")
}

func (Identity) GetIdentityAudience() string {
	return GetEnv("IDENTITY_AUDIENCE", "")
}

func (Identity) GetVerifyIdentityTokens() bool {
	return GetBool("IDENTITY_VERIFY", true)
}
