package earthengine

import (
	"context"
	"os"

	"golang.org/x/oauth2/google"
)

func credentialsFromFile(ctx context.Context, path string) (*google.Credentials, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return google.CredentialsFromJSON(ctx, b, Scopes...)
}
