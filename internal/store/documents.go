package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/maxibertaina03/balanza-industrial/internal/monitoring"
)

// DefaultPassword is the server-role credential used when no credential
// document exists.
const DefaultPassword = "admin123"

// ReadJSON decodes the JSON document at path into v.
func ReadJSON(fs FileSystem, path string, v interface{}) error {
	data, err := fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse document %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes v as an indented JSON document at path. The document is
// written to a temporary file and renamed into place so a reader never
// observes a partially written value.
func WriteJSON(fs FileSystem, path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := fs.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document %s: %w", path, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace document %s: %w", path, err)
	}
	return nil
}

// Credentials is the persisted server-role credential document.
type Credentials struct {
	Password string `json:"password"`
}

// LoadCredentials reads the credential document. A missing or unreadable
// document falls back to the default password; an unreadable one is logged,
// never silent.
func LoadCredentials(fs FileSystem, path string) Credentials {
	var creds Credentials
	if err := ReadJSON(fs, path, &creds); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			monitoring.Logf("credential document unreadable, using default: %v", err)
		}
		return Credentials{Password: DefaultPassword}
	}
	if creds.Password == "" {
		creds.Password = DefaultPassword
	}
	return creds
}

// SaveCredentials writes the credential document.
func SaveCredentials(fs FileSystem, path string, creds Credentials) error {
	return WriteJSON(fs, path, creds)
}
