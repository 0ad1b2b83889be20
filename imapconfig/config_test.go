package imapconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := "host: imap.example.org\nport: 993\ntls_mode: tls\nauth_method: login\nusername: alice\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	profile, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if profile.Host != "imap.example.org" || profile.Port != 993 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if got := profile.Addr(); got != "imap.example.org:993" {
		t.Fatalf("Addr() = %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
