// Package auth extracts the caller's user id from a bearer token.
//
// Tokens are parsed without signature verification: the token is forwarded
// verbatim to the remote document store, whose security rules enforce that
// it is valid and matches the user paths being read. A forged token
// therefore yields upstream permission errors rather than data.
package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hpungsan/flowdeck/internal/errors"
)

var parser = jwt.NewParser()

// Subject returns the user id claimed by a JWT, preferring the user_id
// claim and falling back to the standard sub claim.
func Subject(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.NewAuth("missing bearer token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", errors.NewAuth("malformed bearer token")
	}

	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return uid, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", errors.NewAuth("token carries no user identity")
}

// FromHeader extracts the user id from an Authorization header value.
// It also returns the raw token for forwarding to the document store.
func FromHeader(header string) (uid, token string, err error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", "", errors.NewAuth("missing bearer token")
	}
	token = strings.TrimSpace(strings.TrimPrefix(header, prefix))
	uid, err = Subject(token)
	if err != nil {
		return "", "", err
	}
	return uid, token, nil
}
