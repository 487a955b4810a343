package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakSecret is returned when an HMAC signing secret is shorter than MinHMACSecretLen.
	ErrWeakSecret = errors.New("signing secret too short")
)

// MinHMACSecretLen is the minimum HS256 secret length in bytes.
const MinHMACSecretLen = 32

// Claims is the decoded form of a bearer credential. It is never persisted.
type Claims struct {
	PrincipalID     string
	SessionID       string
	RoleNames       []string
	ModuleRoleNames []string
	ExpiresAt       time.Time
}

// accessClaims is the JWT body of a bearer credential.
type accessClaims struct {
	jwt.RegisteredClaims
	SessionID       string   `json:"session_id"`
	RoleNames       []string `json:"roles"`
	ModuleRoleNames []string `json:"module_roles"`
}

// TokenProvider encodes and decodes bearer JWTs. The signing key, algorithm, issuer, audience
// and TTL are fixed at construction; a TokenProvider is safe for concurrent use.
type TokenProvider struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	issuer    string
	audience  string
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenProvider returns a TokenProvider that signs with the given private key (RS256 or ES256)
// and verifies with publicKey.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, accessTTL time.Duration) (*TokenProvider, error) {
	if privateKey == nil || publicKey == nil {
		return nil, ErrInvalidKey
	}
	var method jwt.SigningMethod
	switch privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return nil, ErrInvalidKey
	}
	if KeyAlg(publicKey) != method.Alg() {
		return nil, ErrInvalidKey
	}
	return &TokenProvider{
		method:    method,
		signKey:   privateKey,
		verifyKey: publicKey,
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		now:       time.Now,
	}, nil
}

// NewHMACTokenProvider returns a TokenProvider that signs and verifies with HS256 and secret.
func NewHMACTokenProvider(secret []byte, issuer, audience string, accessTTL time.Duration) (*TokenProvider, error) {
	if len(secret) < MinHMACSecretLen {
		return nil, ErrWeakSecret
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenProvider{
		method:    jwt.SigningMethodHS256,
		signKey:   key,
		verifyKey: key,
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		now:       time.Now,
	}, nil
}

// WithClock returns a copy of p that reads the current time from now. Intended for tests.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	cp := *p
	cp.now = now
	return &cp
}

// Alg returns the JWT alg header value used for signing.
func (p *TokenProvider) Alg() string {
	return p.method.Alg()
}

// AccessTTL returns the lifetime of issued bearer credentials.
func (p *TokenProvider) AccessTTL() time.Duration {
	return p.accessTTL
}

// Encode signs a bearer credential for c. ExpiresAt on c is ignored; the returned expiry is
// now + accessTTL.
func (p *TokenProvider) Encode(c Claims) (token string, expiresAt time.Time, err error) {
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := p.now().UTC()
	expiresAt = now.Add(p.accessTTL)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   c.PrincipalID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID:       c.SessionID,
		RoleNames:       nonNil(c.RoleNames),
		ModuleRoleNames: nonNil(c.ModuleRoleNames),
	}
	token, err = jwt.NewWithClaims(p.method, claims).SignedString(p.signKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Decode parses and validates a bearer credential (signature, algorithm, exp, iss, aud).
// Every failure is reported as ErrInvalidToken.
func (p *TokenProvider) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		return p.verifyKey, nil
	},
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return &Claims{
		PrincipalID:     claims.Subject,
		SessionID:       claims.SessionID,
		RoleNames:       nonNil(claims.RoleNames),
		ModuleRoleNames: nonNil(claims.ModuleRoleNames),
		ExpiresAt:       claims.ExpiresAt.Time,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
