package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

var bearerAuths map[string]string

const (
	// AuthorizationHeader is the header key to get the authorization token
	AuthorizationHeader = "authorization"
	tokenPrefix         = "Bearer "
)

// BearerAuthenticate rejects the requests without a valid bearer token (except on the root path)
func BearerAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "" && r.URL.Path != "/" {
			tokens := []string{r.Header.Get(AuthorizationHeader)}

			if err := authenticate([]string{"default"}, tokens); err != nil {
				w.WriteHeader(http.StatusForbidden)
				json.NewEncoder(w).Encode(err.Error())
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// authenticate returns nil if one of the tokens matches one of the keys, or if no token is configured
func authenticate(tokenKeys []string, tokens []string) error {
	if bearerAuths == nil {
		return fmt.Errorf("fatal error: no auth info found")
	}
	err := fmt.Errorf("token not found")
	for _, tokenKey := range tokenKeys {
		if bearerAuths[tokenKey] == "" {
			return nil // No auth required
		}

		for _, token := range tokens {
			if token == "" {
				continue
			}
			if !strings.HasPrefix(token, tokenPrefix) {
				err = fmt.Errorf(`missing "%s" prefix`, tokenPrefix)
			} else if strings.TrimPrefix(token, tokenPrefix) != bearerAuths[tokenKey] {
				err = fmt.Errorf("invalid token")
			} else {
				return nil
			}
		}
	}
	return err
}
