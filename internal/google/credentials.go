// Package google turns service-account material into API client options.
package google

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes needed by the bot: spreadsheet writes and Drive uploads.
var (
	SheetsScopes = []string{sheets.SpreadsheetsScope}
	DriveScopes  = []string{drive.DriveScope}
)

// ErrNoCredentials means neither a file nor inline JSON was given.
var ErrNoCredentials = errors.New("google: no service account credentials")

// Credentials points at service-account JSON. File wins over JSON; JSON may
// be the raw document or its base64 encoding.
type Credentials struct {
	File string
	JSON string
}

type serviceAccount struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// Material returns the decoded and sanity-checked JSON document.
func (c Credentials) Material() ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch {
	case strings.TrimSpace(c.File) != "":
		raw, err = os.ReadFile(strings.TrimSpace(c.File))
		if err != nil {
			return nil, fmt.Errorf("google: read credentials file: %w", err)
		}
	case strings.TrimSpace(c.JSON) != "":
		raw, err = DecodeJSON(c.JSON)
		if err != nil {
			return nil, err
		}
	default:
		return nil, ErrNoCredentials
	}

	var sa serviceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("google: parse credentials: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("google: credentials lack client_email or private_key")
	}
	return raw, nil
}

// ClientOptions builds API options with the given scopes.
func (c Credentials) ClientOptions(scopes ...string) ([]option.ClientOption, error) {
	raw, err := c.Material()
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithCredentialsJSON(raw)}
	if len(scopes) > 0 {
		opts = append(opts, option.WithScopes(scopes...))
	}
	return opts, nil
}

// ClientEmail returns the service-account address, useful when sharing a
// sheet or folder with the bot.
func (c Credentials) ClientEmail() (string, error) {
	raw, err := c.Material()
	if err != nil {
		return "", err
	}
	var sa serviceAccount
	_ = json.Unmarshal(raw, &sa)
	return sa.ClientEmail, nil
}

// DecodeJSON accepts a raw JSON document or its standard/URL base64 form.
func DecodeJSON(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "{") {
		return []byte(value), nil
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding} {
		if decoded, err := enc.DecodeString(value); err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("google: credentials are neither JSON nor base64")
}
