package store

import (
	"errors"
	"testing"
)

func TestWriteJSONThenReadJSON(t *testing.T) {
	fs := NewMemoryFileSystem()

	in := map[string]float64{"peso": 12.34}
	if err := WriteJSON(fs, "doc.json", in); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	// The temp file must not linger after the rename.
	if fs.Exists("doc.json.tmp") {
		t.Error("temporary file left behind after WriteJSON")
	}

	var out map[string]float64
	if err := ReadJSON(fs, "doc.json", &out); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if out["peso"] != 12.34 {
		t.Errorf("round trip peso = %v, want 12.34", out["peso"])
	}
}

func TestWriteJSONSurfacesWriteFailure(t *testing.T) {
	fs := NewMemoryFileSystem()
	fs.FailWrites = errors.New("disk full")

	if err := WriteJSON(fs, "doc.json", map[string]int{"a": 1}); err == nil {
		t.Fatal("WriteJSON on failing filesystem returned nil error")
	}
	if fs.Exists("doc.json") {
		t.Error("document created despite write failure")
	}
}

func TestLoadCredentialsDefaults(t *testing.T) {
	fs := NewMemoryFileSystem()

	// Missing document falls back to the fixed default credential.
	creds := LoadCredentials(fs, "balanza_password.json")
	if creds.Password != DefaultPassword {
		t.Errorf("missing document password = %q, want %q", creds.Password, DefaultPassword)
	}

	// Corrupt document also falls back rather than crashing.
	fs.WriteFile("balanza_password.json", []byte("{not json"), 0o644)
	creds = LoadCredentials(fs, "balanza_password.json")
	if creds.Password != DefaultPassword {
		t.Errorf("corrupt document password = %q, want %q", creds.Password, DefaultPassword)
	}
}

func TestSaveAndLoadCredentials(t *testing.T) {
	fs := NewMemoryFileSystem()

	if err := SaveCredentials(fs, "balanza_password.json", Credentials{Password: "secreto"}); err != nil {
		t.Fatalf("SaveCredentials: %v", err)
	}
	creds := LoadCredentials(fs, "balanza_password.json")
	if creds.Password != "secreto" {
		t.Errorf("password = %q, want secreto", creds.Password)
	}
}
