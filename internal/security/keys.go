package security

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// Keypair holds the signing key material. It is loaded once at process start
// and shared read-only by every request; a load failure is fatal at boot.
type Keypair struct {
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

func LoadKeypair(privateKeyPath, publicKeyPath string) (*Keypair, error) {
	privPEM, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	pubPEM, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return ParseKeypair(privPEM, pubPEM)
}

func ParseKeypair(privPEM, pubPEM []byte) (*Keypair, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &Keypair{Private: priv, Public: pub}, nil
}
