package server

import (
	"errors"
	"strings"
)

// Authenticator resolves the acting user from an Authorization header value.
type Authenticator interface {
	UserIDFromAuthHeader(header string) (string, error)
}

var errUnauthorized = errors.New("missing or invalid bearer token")

// StaticTokens authenticates by exact bearer-token lookup. Token issuance
// itself lives outside this service; deployments hand the gateway a token
// table (or swap in their own Authenticator).
type StaticTokens map[string]string

func (s StaticTokens) UserIDFromAuthHeader(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errUnauthorized
	}
	userID, ok := s[strings.TrimSpace(parts[1])]
	if !ok {
		return "", errUnauthorized
	}
	return userID, nil
}
