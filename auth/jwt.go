package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer credential payload.
type Claims struct {
	WalletAddress string `json:"walletAddress"`
	DisplayName   string `json:"displayName"`
	UserID        string `json:"userId"`
	jwt.RegisteredClaims
}

// GenerateJWT issues the bearer credential for an authenticated wallet.
// Expiry is set a century out: tokens are effectively unbounded, matching the
// replayable static-challenge login design.
func GenerateJWT(walletAddress, displayName, userID, secret string) (string, error) {
	claims := Claims{
		WalletAddress: walletAddress,
		DisplayName:   displayName,
		UserID:        userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().AddDate(100, 0, 0)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT parses and validates a bearer credential.
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
