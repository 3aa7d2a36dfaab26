package out

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"analyzeit/internal/platform/config"
	apperrors "analyzeit/internal/platform/errors"
)

func signedClaims(subject, issuer string, expires time.Time) identityClaims {
	return identityClaims{
		Email:   "ada@example.com",
		Name:    "Ada",
		Picture: "https://example.com/ada.png",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestJWTVerifierES256(t *testing.T) {
	t.Parallel()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "identity.pub")
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	verifier, err := NewJWTVerifier(config.AuthConfig{PublicKeyPath: keyPath, Issuer: "analyzeit"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, signedClaims("u1", "analyzeit", time.Now().Add(time.Hour))).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	user, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.UID != "u1" || user.Email != "ada@example.com" || user.Photo != "https://example.com/ada.png" {
		t.Fatalf("unexpected user %+v", user)
	}

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodES256, signedClaims("u1", "other", time.Now().Add(time.Hour))).SignedString(key)
	if _, err := verifier.Verify(context.Background(), wrongIssuer); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Fatalf("expected invalid token for wrong issuer, got %v", err)
	}

	hmacToken, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, signedClaims("u1", "analyzeit", time.Now().Add(time.Hour))).SignedString([]byte("secret"))
	if _, err := verifier.Verify(context.Background(), hmacToken); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Fatalf("expected HS256 token rejected when a public key is set, got %v", err)
	}
}

func TestJWTVerifierHS256(t *testing.T) {
	t.Parallel()

	verifier, err := NewJWTVerifier(config.AuthConfig{Secret: "s3cret"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	valid, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, signedClaims("u2", "", time.Now().Add(time.Hour))).SignedString([]byte("s3cret"))
	if user, err := verifier.Verify(context.Background(), valid); err != nil || user.UID != "u2" {
		t.Fatalf("expected valid token, got %+v %v", user, err)
	}

	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, signedClaims("u2", "", time.Now().Add(-time.Hour))).SignedString([]byte("s3cret"))
	if _, err := verifier.Verify(context.Background(), expired); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, signedClaims("", "", time.Now().Add(time.Hour))).SignedString([]byte("s3cret"))
	if _, err := verifier.Verify(context.Background(), noSubject); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Fatalf("expected missing subject rejected, got %v", err)
	}
}

func TestJWTVerifierWithoutKey(t *testing.T) {
	t.Parallel()

	verifier, err := NewJWTVerifier(config.AuthConfig{})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	if _, err := verifier.Verify(context.Background(), "a.b.c"); !errors.Is(err, apperrors.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}
