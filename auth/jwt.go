package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func GenerateJWT(secret string, username, orgID string, isAdmin bool, expirationMinutes int) (string, error) {
	claims := jwt.MapClaims{
		"sub":   username,
		"org":   orgID,
		"admin": isAdmin,
		"exp":   time.Now().Add(time.Duration(expirationMinutes) * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Identity : qui appelle, pour quelle organisation, avec quels droits.
type Identity struct {
	Username string
	OrgID    string
	IsAdmin  bool
}

func ExtractIdentityFromJWT(r *http.Request, secret string) (*Identity, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		return nil, errors.New("no bearer token")
	}
	tokenString := strings.TrimPrefix(auth, "Bearer ")
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired JWT")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid JWT claims")
	}
	id := &Identity{}
	id.Username, _ = claims["sub"].(string)
	id.OrgID, _ = claims["org"].(string)
	switch v := claims["admin"].(type) {
	case bool:
		id.IsAdmin = v
	case string:
		id.IsAdmin = v == "true" || v == "1"
	case float64:
		id.IsAdmin = v == 1
	}
	return id, nil
}
