// Package auth verifies the HS256 tokens both services accept. Tokens carry
// the player's user_id and username claims; issuing them belongs to the
// login service.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/jwtauth"
)

var ErrNoUser = errors.New("token has no user")

type User struct {
	ID       int64
	Username string
}

func New(secret string) *jwtauth.JWTAuth {
	return jwtauth.New("HS256", []byte(secret), nil)
}

// Verifier looks for the token in the jwt query parameter, the
// Authorization header and the jwt cookie. Browsers cannot set headers on a
// websocket upgrade, hence the query parameter.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return jwtauth.Verify(ja, jwtauth.TokenFromQuery, jwtauth.TokenFromHeader, jwtauth.TokenFromCookie)
}

// Token signs a token for a user. Used by tests and local tooling.
func Token(ja *jwtauth.JWTAuth, u User, ttl time.Duration) (string, error) {
	_, token, err := ja.Encode(map[string]interface{}{
		"user_id":  u.ID,
		"username": u.Username,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token, err
}

// FromContext returns the user of a request that passed the verifier.
func FromContext(ctx context.Context) (User, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return User{}, err
	}
	return FromClaims(claims)
}

func FromClaims(claims map[string]interface{}) (User, error) {
	id, err := int64Claim(claims["user_id"])
	if err != nil {
		return User{}, err
	}
	if id <= 0 {
		return User{}, ErrNoUser
	}
	name, _ := claims["username"].(string)
	return User{ID: id, Username: name}, nil
}

func int64Claim(v interface{}) (int64, error) {
	switch n := v.(type) {
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, ErrNoUser
	default:
		return 0, fmt.Errorf("user_id claim has type %T", v)
	}
}
