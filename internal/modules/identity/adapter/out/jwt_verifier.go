package out

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"analyzeit/internal/modules/identity/domain"
	identityout "analyzeit/internal/modules/identity/port/out"
	"analyzeit/internal/platform/config"
	apperrors "analyzeit/internal/platform/errors"
)

type identityClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// JWTVerifier checks identity tokens signed with ES256 (public key) or HS256
// (shared secret). The public key wins when both are configured.
type JWTVerifier struct {
	publicKey *ecdsa.PublicKey
	secret    []byte
	issuer    string
}

func NewJWTVerifier(auth config.AuthConfig) (identityout.TokenVerifier, error) {
	verifier := &JWTVerifier{issuer: strings.TrimSpace(auth.Issuer)}
	if path := strings.TrimSpace(auth.PublicKeyPath); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read token public key: %w", err)
		}
		key, err := jwt.ParseECPublicKeyFromPEM(raw)
		if err != nil {
			return nil, fmt.Errorf("parse token public key: %w", err)
		}
		verifier.publicKey = key
	} else if auth.Secret != "" {
		verifier.secret = []byte(auth.Secret)
	}
	return verifier, nil
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (domain.User, error) {
	if v.publicKey == nil && len(v.secret) == 0 {
		return domain.User{}, fmt.Errorf("%w: no verification key configured", apperrors.ErrInvalidToken)
	}
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.publicKey != nil {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}))
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims identityClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if v.publicKey != nil {
			if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return domain.User{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return domain.User{}, fmt.Errorf("%w: missing subject", apperrors.ErrInvalidToken)
	}
	return domain.User{UID: claims.Subject, Email: claims.Email, Name: claims.Name, Photo: claims.Picture}, nil
}
