// Package imapconfig loads an optional YAML dial profile from disk. It is
// tooling around imapclient, not a dependency of the engine itself: the
// engine's own connect path never touches the filesystem.
package imapconfig

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Profile describes how to reach and authenticate against one IMAP server,
// the way LSFLK-raven's conf.Config describes one service's settings.
type Profile struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// TLSMode is one of "tls" (implicit TLS), "starttls", or "insecure".
	TLSMode string `yaml:"tls_mode"`

	AuthMethod string `yaml:"auth_method"` // "login", "plain", "xoauth2", "external"
	Username   string `yaml:"username"`

	RetryMaxAttempts int           `yaml:"retry_max_attempts"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay    time.Duration `yaml:"retry_max_delay"`
}

// candidatePaths are tried in order when no explicit path is given.
var candidatePaths = []string{
	"./config/imapengine.yaml",
	"./imapengine.yaml",
	"/etc/imapengine/imapengine.yaml",
}

// Load reads a Profile from path. An empty path tries candidatePaths in
// order and returns the first one found.
func Load(path string) (*Profile, error) {
	paths := []string{path}
	if path == "" {
		paths = candidatePaths
	}

	var lastErr error
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			lastErr = err
			continue
		}
		var profile Profile
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("imapconfig: parsing %s: %w", p, err)
		}
		return &profile, nil
	}
	return nil, fmt.Errorf("imapconfig: no config file found: %w", lastErr)
}

// Addr returns "host:port".
func (p *Profile) Addr() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}
