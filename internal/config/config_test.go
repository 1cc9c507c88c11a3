package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "123:token"
	cfg.Establishments = []string{"Restaurant 1", "Restaurant 2"}
	cfg.Sheets.SpreadsheetID = "sheet-id"
	cfg.Google.CredentialsFile = "service_account.json"
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Feedback.PhotoPolicy != PhotoPolicyDirect {
		t.Errorf("photo policy = %q", cfg.Feedback.PhotoPolicy)
	}
	if cfg.Store.Backend != StoreSheets || cfg.Sheets.WriteMode != WriteModeAppend {
		t.Errorf("store = %q mode = %q", cfg.Store.Backend, cfg.Sheets.WriteMode)
	}
	if cfg.Session.Backend != SessionMemory {
		t.Errorf("session = %q", cfg.Session.Backend)
	}
	if cfg.Feedback.MenuColumns != 1 {
		t.Errorf("menu columns = %d", cfg.Feedback.MenuColumns)
	}
	if cfg.Messages.ThankYou == "" || cfg.Messages.StartFirst == "" {
		t.Error("default messages not applied")
	}
	if cfg.UsesDatabase() {
		t.Error("sheets backend must not use the database")
	}
}

func TestValidateMissingRequired(t *testing.T) {
	cases := map[string]func(*Config){
		"token":          func(c *Config) { c.Telegram.Token = "" },
		"spreadsheet":    func(c *Config) { c.Sheets.SpreadsheetID = " " },
		"credentials":    func(c *Config) { c.Google = GoogleConfig{} },
		"establishments": func(c *Config) { c.Establishments = []string{" ", ""} },
		"drive folder": func(c *Config) {
			c.Feedback.PhotoPolicy = PhotoPolicyDurable
		},
		"s3 bucket": func(c *Config) {
			c.Feedback.PhotoPolicy = PhotoPolicyDurable
			c.Storage.Backend = StorageS3
		},
		"redis addr": func(c *Config) { c.Session.Backend = SessionRedis },
		"database": func(c *Config) {
			c.Store.Backend = StorePostgres
		},
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrConfigMissing) {
			t.Errorf("%s: expected ErrConfigMissing, got %v", name, err)
		}
	}
}

func TestValidateEstablishmentsTrimmedAndUnique(t *testing.T) {
	cfg := validConfig()
	cfg.Establishments = []string{"  Good Company ", "", "Blue Door"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(cfg.Establishments) != 2 || cfg.Establishments[0] != "Good Company" || cfg.Establishments[1] != "Blue Door" {
		t.Fatalf("establishments = %q", cfg.Establishments)
	}

	cfg = validConfig()
	cfg.Establishments = []string{"A", "A "}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	cases := map[string]func(*Config){
		"policy":  func(c *Config) { c.Feedback.PhotoPolicy = "inline" },
		"store":   func(c *Config) { c.Store.Backend = "csv" },
		"session": func(c *Config) { c.Session.Backend = "etcd" },
		"mode":    func(c *Config) { c.Sheets.WriteMode = "prepend" },
		"storage": func(c *Config) {
			c.Feedback.PhotoPolicy = PhotoPolicyDurable
			c.Storage.Backend = "ftp"
		},
		"timezone": func(c *Config) { c.Feedback.Timezone = "Mars/Olympus" },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if errors.Is(err, ErrConfigMissing) {
			t.Errorf("%s: invalid value reported as missing: %v", name, err)
		}
	}
}

func TestValidateDurableS3(t *testing.T) {
	cfg := validConfig()
	cfg.Feedback.PhotoPolicy = PhotoPolicyDurable
	cfg.Storage.Backend = StorageS3
	cfg.Storage.S3.Bucket = "photos"
	cfg.Storage.S3.PublicBaseURL = "https://cdn.example.com/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Storage.S3.PublicBaseURL != "https://cdn.example.com" {
		t.Errorf("public base url = %q", cfg.Storage.S3.PublicBaseURL)
	}
	if cfg.Storage.S3.Region != "auto" {
		t.Errorf("region = %q", cfg.Storage.S3.Region)
	}
}

func TestValidatePostgresDefaultsPort(t *testing.T) {
	cfg := validConfig()
	cfg.Store.Backend = StorePostgres
	cfg.Database.Host = "db"
	cfg.Database.Name = "reviews"
	cfg.Sheets.SpreadsheetID = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Database.Port != "5432" || !cfg.UsesDatabase() {
		t.Fatalf("port = %q uses db = %v", cfg.Database.Port, cfg.UsesDatabase())
	}
}

func TestTimezoneLocation(t *testing.T) {
	cfg := validConfig()
	cfg.Feedback.Timezone = "UTC"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Feedback.Location().String() != "UTC" {
		t.Fatalf("location = %v", cfg.Feedback.Location())
	}
}

func TestLoadFromYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := []byte(`telegram:
  token: file-token
establishments:
  - Restaurant 1
  - Restaurant 2
sheets:
  spreadsheet_id: from-file
google:
  credentials_file: sa.json
messages:
  thank_you: Merci!
`)
	if err := os.WriteFile(path, yml, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SPREADSHEET_ID", "from-env")
	t.Setenv("PHOTO_POLICY", "DIRECT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sheets.SpreadsheetID != "from-env" {
		t.Errorf("spreadsheet id = %q", cfg.Sheets.SpreadsheetID)
	}
	if cfg.Telegram.Token != "file-token" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Feedback.PhotoPolicy != PhotoPolicyDirect {
		t.Errorf("policy = %q", cfg.Feedback.PhotoPolicy)
	}
	if cfg.Messages.ThankYou != "Merci!" {
		t.Errorf("thank you = %q", cfg.Messages.ThankYou)
	}
	if cfg.Messages.Cancelled == "" {
		t.Error("unset message not defaulted")
	}
	if cfg.CoreConfig() == nil {
		t.Error("core config not reachable")
	}
}

func TestSelectedFor(t *testing.T) {
	m := DefaultMessages()
	got := m.SelectedFor("Good Company")
	want := "You selected Good Company. Write your feedback and/or attach a photo."
	if got != want {
		t.Fatalf("got %q", got)
	}
}
