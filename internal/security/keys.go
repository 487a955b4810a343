package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Asymmetric signing keys arrive through JWT_PRIVATE_KEY and JWT_PUBLIC_KEY. Each value is
// either the PEM text itself or a path to a PEM file.

// ErrInvalidKey is returned when key material is missing, not PEM, or of an unsupported type.
var ErrInvalidKey = errors.New("invalid key")

// ErrKeyMismatch is returned by LoadKeyPair when the public key does not belong to the private key.
var ErrKeyMismatch = errors.New("public key does not match private key")

const pemMarker = "-----BEGIN"

type signerDecoder func(der []byte) (crypto.Signer, error)

type verifierDecoder func(der []byte) (crypto.PublicKey, error)

var signerDecoders = map[string]signerDecoder{
	"PRIVATE KEY": func(der []byte) (crypto.Signer, error) {
		k, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, err
		}
		s, ok := k.(crypto.Signer)
		if !ok {
			return nil, ErrInvalidKey
		}
		return s, nil
	},
	"RSA PRIVATE KEY": func(der []byte) (crypto.Signer, error) {
		k, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, err
		}
		return k, nil
	},
	"EC PRIVATE KEY": func(der []byte) (crypto.Signer, error) {
		k, err := x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, err
		}
		return k, nil
	},
}

var verifierDecoders = map[string]verifierDecoder{
	"PUBLIC KEY": func(der []byte) (crypto.PublicKey, error) {
		return x509.ParsePKIXPublicKey(der)
	},
	"RSA PUBLIC KEY": func(der []byte) (crypto.PublicKey, error) {
		k, err := x509.ParsePKCS1PublicKey(der)
		if err != nil {
			return nil, err
		}
		return k, nil
	},
}

// LoadPEM resolves a key setting to PEM bytes. Values starting with a PEM header are used as is,
// after turning literal `\n` sequences (common in .env files) into newlines; anything else is a path.
func LoadPEM(source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return nil, ErrInvalidKey
	case strings.HasPrefix(source, pemMarker):
		return []byte(strings.ReplaceAll(source, `\n`, "\n")), nil
	}
	b, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return b, nil
}

// ParsePrivateKey decodes an RSA or ECDSA private key in PKCS#8, PKCS#1 or SEC 1 form.
func ParsePrivateKey(source string) (crypto.Signer, error) {
	block, err := readBlock(source)
	if err != nil {
		return nil, err
	}
	decode, ok := signerDecoders[block.Type]
	if !ok {
		return nil, ErrInvalidKey
	}
	return decode(block.Bytes)
}

// ParsePublicKey decodes a PKIX or PKCS#1 public key.
func ParsePublicKey(source string) (crypto.PublicKey, error) {
	block, err := readBlock(source)
	if err != nil {
		return nil, err
	}
	decode, ok := verifierDecoders[block.Type]
	if !ok {
		return nil, ErrInvalidKey
	}
	return decode(block.Bytes)
}

// LoadKeyPair parses both halves of a signing key pair and checks that they belong together.
func LoadKeyPair(privateSource, publicSource string) (crypto.Signer, crypto.PublicKey, error) {
	signer, err := ParsePrivateKey(privateSource)
	if err != nil {
		return nil, nil, fmt.Errorf("private key: %w", err)
	}
	pub, err := ParsePublicKey(publicSource)
	if err != nil {
		return nil, nil, fmt.Errorf("public key: %w", err)
	}
	own, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !own.Equal(pub) {
		return nil, nil, ErrKeyMismatch
	}
	return signer, pub, nil
}

// KeyAlg names the JWS algorithm a public key can verify: RS256 for RSA, ES256 for ECDSA on P-256.
// Other keys, including ECDSA on other curves, yield "".
func KeyAlg(pub crypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		if k.Curve == elliptic.P256() {
			return "ES256"
		}
	}
	return ""
}

func readBlock(source string) (*pem.Block, error) {
	raw, err := LoadPEM(source)
	if err != nil {
		return nil, err
	}
	if block, _ := pem.Decode(raw); block != nil {
		return block, nil
	}
	return nil, ErrInvalidKey
}
