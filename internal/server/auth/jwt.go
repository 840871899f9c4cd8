// Package auth issues and verifies the HS256 access tokens devices present
// to the server.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/todosync/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims extends the registered claims with the owner and the device the
// token was issued to.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string
	DeviceID string `json:",omitempty"`
}

func GenerateToken(userID, deviceID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:   userID,
		DeviceID: deviceID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// Identity is who a request acts as.
type Identity struct {
	UserID   string
	DeviceID string
}

// Authenticator resolves request credentials into an Identity.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secretKey string) *Authenticator {
	return &Authenticator{secret: []byte(secretKey)}
}

// Authenticate validates token. Without a configured secret every caller
// is the anonymous user. The device id from the token wins over the one
// the caller sent alongside it.
func (a *Authenticator) Authenticate(token, deviceID string) (Identity, error) {
	if len(a.secret) == 0 {
		return Identity{UserID: common.AnonymousUserID, DeviceID: deviceID}, nil
	}
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing token", common.ErrorUnauthorized)
	}

	claims, err := ParseToken(token, a.secret)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
	}

	id := Identity{UserID: claims.UserID, DeviceID: deviceID}
	if claims.DeviceID != "" {
		id.DeviceID = claims.DeviceID
	}
	return id, nil
}
