// Package firebase boots the Firebase Admin app shared by the FCM transport
// and the Firestore store.
package firebase

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// Credentials selects how the Admin SDK authenticates.
// Inline service-account fields win over a credentials file; with neither set
// the SDK falls back to Application Default Credentials.
type Credentials struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
	File        string
}

// ClientOptions translates credentials into google API client options.
func (c Credentials) ClientOptions() []option.ClientOption {
	if c.ClientEmail != "" && c.PrivateKey != "" {
		return []option.ClientOption{option.WithCredentialsJSON(c.serviceAccountJSON())}
	}
	if c.File != "" {
		return []option.ClientOption{option.WithCredentialsFile(c.File)}
	}
	return nil
}

// serviceAccountJSON rebuilds the JSON downloaded from the Firebase console.
// Keys in .env files carry literal "\n" sequences; the SDK wants real newlines.
func (c Credentials) serviceAccountJSON() []byte {
	privateKey := strings.ReplaceAll(c.PrivateKey, "\\n", "\n")
	return []byte(fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, c.ProjectID, privateKey, c.ClientEmail))
}

// NewApp initialises the Firebase app.
func NewApp(ctx context.Context, creds Credentials) (*firebase.App, error) {
	var conf *firebase.Config
	if creds.ProjectID != "" {
		conf = &firebase.Config{ProjectID: creds.ProjectID}
	}

	app, err := firebase.NewApp(ctx, conf, creds.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}
