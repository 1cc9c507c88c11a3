package logger

import (
	"strings"
	"testing"
)

func TestRedactSecretsMasksFileURL(t *testing.T) {
	in := "get https://api.telegram.org/file/bot123456:AAH-x_y/photos/file_1.jpg: timeout"
	out := RedactSecrets(in)
	if strings.Contains(out, "AAH-x_y") {
		t.Fatalf("token leaked: %s", out)
	}
	if !strings.Contains(out, "bot<redacted>/photos/file_1.jpg") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestRedactSecretsRegistered(t *testing.T) {
	RegisterSecret("short")
	RegisterSecret("service-account-secret")
	out := RedactSecrets("key=service-account-secret short")
	if out != "key=<redacted> short" {
		t.Fatalf("unexpected output: %s", out)
	}
}
