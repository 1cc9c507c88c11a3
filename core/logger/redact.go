package logger

import (
	"regexp"
	"strings"
	"sync"
)

const redacted = "<redacted>"

var (
	botTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

	secretsMu sync.RWMutex
	secrets   []string
)

// RegisterSecret marks a literal value that must never appear in log output.
// Values shorter than 8 characters are ignored to avoid mangling ordinary text.
func RegisterSecret(value string) {
	value = strings.TrimSpace(value)
	if len(value) < 8 {
		return
	}
	secretsMu.Lock()
	defer secretsMu.Unlock()
	for _, s := range secrets {
		if s == value {
			return
		}
	}
	secrets = append(secrets, value)
}

// RedactSecrets masks Telegram bot tokens embedded in URLs (for example file
// download links) as well as every registered secret.
func RedactSecrets(s string) string {
	if s == "" {
		return s
	}
	out := botTokenRe.ReplaceAllString(s, "bot"+redacted)
	secretsMu.RLock()
	defer secretsMu.RUnlock()
	for _, secret := range secrets {
		if strings.Contains(out, secret) {
			out = strings.ReplaceAll(out, secret, redacted)
		}
	}
	return out
}
