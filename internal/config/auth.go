package config

import (
	"fmt"

	"ztcp-auth/internal/security"
)

// TokenProvider builds the bearer token codec described by the JWT_* settings.
// The key type must agree with JWT_ALGORITHM.
func (c *Config) TokenProvider() (*security.TokenProvider, error) {
	if err := c.ValidateAuth(); err != nil {
		return nil, err
	}
	if c.JWTAlgorithm == AlgHS256 {
		return security.NewHMACTokenProvider([]byte(c.JWTSecret), c.JWTIssuer, c.JWTAudience, c.AccessTTL())
	}
	priv, pub, err := security.LoadKeyPair(c.JWTPrivateKey, c.JWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("config: JWT_PRIVATE_KEY/JWT_PUBLIC_KEY: %w", err)
	}
	p, err := security.NewTokenProvider(priv, pub, c.JWTIssuer, c.JWTAudience, c.AccessTTL())
	if err != nil {
		return nil, fmt.Errorf("config: signing keys: %w", err)
	}
	if p.Alg() != c.JWTAlgorithm {
		return nil, fmt.Errorf("config: JWT_ALGORITHM is %s but keys are %s", c.JWTAlgorithm, p.Alg())
	}
	return p, nil
}
