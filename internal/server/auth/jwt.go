// Package auth issues and verifies the signed bearer tokens that gate every
// protected operation. Tokens are stateless: expiry is the only invalidation
// mechanism, and issuer/audience binding prevents reuse across unrelated
// deployments sharing signing infrastructure.
package auth

import (
	"fmt"
	"time"

	"github.com/avelkers/medrecord/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims extends the registered claim set with the user's email. The user id
// travels in the standard "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenParams carries process configuration for signing and verifying tokens.
type TokenParams struct {
	SecretKey []byte
	Issuer    string
	Audience  string
}

// GenerateToken produces a signed HS256 token for the given user.
func GenerateToken(userID, email string, p TokenParams, validityDuration time.Duration) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.Issuer,
			Audience:  jwt.ClaimStrings{p.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(p.SecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature, algorithm, issuer, audience and expiry
// of tokenString and returns the encoded user id and email. Any failure is
// reported as common.ErrInvalidToken.
func ParseToken(tokenString string, p TokenParams) (string, string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return p.SecretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.Issuer),
		jwt.WithAudience(p.Audience),
	)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", "", common.ErrInvalidToken
	}

	return claims.Subject, claims.Email, nil
}
