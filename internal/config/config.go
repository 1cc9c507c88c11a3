package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/reviewbot/core/config"
	coredatabase "github.com/m3rciful/reviewbot/core/database"
)

// ErrConfigMissing is re-exported so callers need a single import to
// classify startup failures.
var ErrConfigMissing = coreconfig.ErrConfigMissing

const (
	// PhotoPolicyDirect links photos straight from the Telegram file API.
	PhotoPolicyDirect = "direct"
	// PhotoPolicyDurable copies photos into object storage.
	PhotoPolicyDurable = "durable"

	// StoreSheets writes submissions to Google Sheets.
	StoreSheets = "sheets"
	// StorePostgres writes submissions to the PostgreSQL journal.
	StorePostgres = "postgres"

	// StorageDrive keeps durable photo copies in a Google Drive folder.
	StorageDrive = "drive"
	// StorageS3 keeps durable photo copies in an S3-compatible bucket.
	StorageS3 = "s3"

	// SessionMemory keeps sessions in process memory.
	SessionMemory = "memory"
	// SessionRedis keeps sessions in Redis.
	SessionRedis = "redis"

	// WriteModeAppend appends rows after the last table row.
	WriteModeAppend = "append"
	// WriteModeNextRow computes the first empty row and updates it.
	WriteModeNextRow = "next_row"
)

// FeedbackConfig controls how submissions are assembled.
type FeedbackConfig struct {
	PhotoPolicy string `yaml:"photo_policy" envconfig:"PHOTO_POLICY"`
	// Timezone names the IANA zone used for row timestamps; empty means local time.
	Timezone    string `yaml:"timezone" envconfig:"FEEDBACK_TIMEZONE"`
	MenuColumns int    `yaml:"menu_columns" envconfig:"MENU_COLUMNS"`

	location *time.Location
}

// Location returns the resolved timestamp zone.
func (f FeedbackConfig) Location() *time.Location {
	if f.location == nil {
		return time.Local
	}
	return f.location
}

// SheetsConfig points at the spreadsheet receiving submissions.
type SheetsConfig struct {
	SpreadsheetID string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID"`
	// SheetName selects a worksheet by title; empty means the first sheet.
	SheetName string `yaml:"sheet_name" envconfig:"SHEET_NAME"`
	WriteMode string `yaml:"write_mode" envconfig:"SHEET_WRITE_MODE"`
}

// GoogleConfig carries service-account material. JSON may be raw or base64.
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file" envconfig:"GOOGLE_CREDENTIALS_FILE"`
	CredentialsJSON string `yaml:"credentials_json" envconfig:"GOOGLE_CREDENTIALS_JSON"`
}

// HasCredentials reports whether any credential source is configured.
func (g GoogleConfig) HasCredentials() bool {
	return strings.TrimSpace(g.CredentialsFile) != "" || strings.TrimSpace(g.CredentialsJSON) != ""
}

// DriveConfig selects the Drive folder holding photo copies.
type DriveConfig struct {
	FolderID string `yaml:"folder_id" envconfig:"DRIVE_FOLDER_ID"`
}

// S3Config describes an S3-compatible bucket (AWS, R2, MinIO).
type S3Config struct {
	Endpoint      string `yaml:"endpoint" envconfig:"S3_ENDPOINT"`
	Region        string `yaml:"region" envconfig:"S3_REGION"`
	Bucket        string `yaml:"bucket" envconfig:"S3_BUCKET"`
	AccessKey     string `yaml:"access_key" envconfig:"S3_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" envconfig:"S3_SECRET_KEY"`
	PublicBaseURL string `yaml:"public_base_url" envconfig:"S3_PUBLIC_BASE_URL"`
	PublicACL     bool   `yaml:"public_acl" envconfig:"S3_PUBLIC_ACL"`
	KeyPrefix     string `yaml:"key_prefix" envconfig:"S3_KEY_PREFIX"`
}

// StorageConfig configures durable photo copies.
type StorageConfig struct {
	Backend string      `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	Drive   DriveConfig `yaml:"drive"`
	S3      S3Config    `yaml:"s3"`
	// TempDir receives downloaded photos before upload; empty means os.TempDir.
	TempDir string `yaml:"temp_dir" envconfig:"PHOTO_TEMP_DIR"`
}

// RedisConfig configures the Redis session store.
type RedisConfig struct {
	Addr      string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password  string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB        int           `yaml:"db" envconfig:"REDIS_DB"`
	TTL       time.Duration `yaml:"ttl" envconfig:"REDIS_SESSION_TTL"`
	KeyPrefix string        `yaml:"key_prefix" envconfig:"REDIS_KEY_PREFIX"`
}

// SessionConfig selects the session store.
type SessionConfig struct {
	Backend string      `yaml:"backend" envconfig:"SESSION_BACKEND"`
	Redis   RedisConfig `yaml:"redis"`
}

// StoreConfig selects the tabular backend.
type StoreConfig struct {
	Backend string `yaml:"backend" envconfig:"STORE_BACKEND"`
}

// OpsConfig configures the health endpoint server.
type OpsConfig struct {
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Establishments []string            `yaml:"establishments" envconfig:"ESTABLISHMENTS"`
	Feedback       FeedbackConfig      `yaml:"feedback"`
	Sheets         SheetsConfig        `yaml:"sheets"`
	Google         GoogleConfig        `yaml:"google"`
	Storage        StorageConfig       `yaml:"storage"`
	Session        SessionConfig       `yaml:"session"`
	Store          StoreConfig         `yaml:"store"`
	Database       coredatabase.Config `yaml:"database"`
	Ops            OpsConfig           `yaml:"ops"`
	Messages       Messages            `yaml:"messages"`
}

// Load reads the YAML file at path, overlays the environment and validates
// the result. A missing file is allowed.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate normalizes the configuration and reports missing required values
// wrapped in ErrConfigMissing.
func (c *Config) Validate() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.normalizeEstablishments(); err != nil {
		return err
	}
	if err := c.normalizeFeedback(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	if err := c.normalizeSession(); err != nil {
		return err
	}
	c.Ops.Listen = strings.TrimSpace(c.Ops.Listen)
	c.Messages = c.Messages.withDefaults()
	return nil
}

func (c *Config) normalizeEstablishments() error {
	seen := make(map[string]struct{}, len(c.Establishments))
	out := make([]string, 0, len(c.Establishments))
	for _, raw := range c.Establishments {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate establishment %q", name)
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return fmt.Errorf("%w: establishments (ESTABLISHMENTS)", ErrConfigMissing)
	}
	c.Establishments = out
	return nil
}

func (c *Config) normalizeFeedback() error {
	f := &c.Feedback
	f.PhotoPolicy = lowerOr(f.PhotoPolicy, PhotoPolicyDirect)
	switch f.PhotoPolicy {
	case PhotoPolicyDirect, PhotoPolicyDurable:
	default:
		return fmt.Errorf("invalid feedback.photo_policy %q; allowed: direct, durable", f.PhotoPolicy)
	}
	if f.MenuColumns <= 0 {
		f.MenuColumns = 1
	}
	if tz := strings.TrimSpace(f.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid feedback.timezone %q: %w", tz, err)
		}
		f.location = loc
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Backend = lowerOr(c.Store.Backend, StoreSheets)
	switch c.Store.Backend {
	case StoreSheets:
		c.Sheets.SpreadsheetID = strings.TrimSpace(c.Sheets.SpreadsheetID)
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("%w: sheets.spreadsheet_id (SPREADSHEET_ID)", ErrConfigMissing)
		}
		if !c.Google.HasCredentials() {
			return fmt.Errorf("%w: google credentials (GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON)", ErrConfigMissing)
		}
		c.Sheets.WriteMode = lowerOr(c.Sheets.WriteMode, WriteModeAppend)
		switch c.Sheets.WriteMode {
		case WriteModeAppend, WriteModeNextRow:
		default:
			return fmt.Errorf("invalid sheets.write_mode %q; allowed: append, next_row", c.Sheets.WriteMode)
		}
	case StorePostgres:
		if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.Name) == "" {
			return fmt.Errorf("%w: database.host and database.name (DB_HOST, DB_NAME)", ErrConfigMissing)
		}
		if c.Database.Port == "" {
			c.Database.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid store.backend %q; allowed: sheets, postgres", c.Store.Backend)
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = lowerOr(c.Storage.Backend, StorageDrive)
	if c.Feedback.PhotoPolicy != PhotoPolicyDurable {
		return nil
	}
	switch c.Storage.Backend {
	case StorageDrive:
		c.Storage.Drive.FolderID = strings.TrimSpace(c.Storage.Drive.FolderID)
		if c.Storage.Drive.FolderID == "" {
			return fmt.Errorf("%w: storage.drive.folder_id (DRIVE_FOLDER_ID)", ErrConfigMissing)
		}
		if !c.Google.HasCredentials() {
			return fmt.Errorf("%w: google credentials for drive uploads", ErrConfigMissing)
		}
	case StorageS3:
		s3 := &c.Storage.S3
		s3.Bucket = strings.TrimSpace(s3.Bucket)
		s3.PublicBaseURL = strings.TrimRight(strings.TrimSpace(s3.PublicBaseURL), "/")
		if s3.Bucket == "" {
			return fmt.Errorf("%w: storage.s3.bucket (S3_BUCKET)", ErrConfigMissing)
		}
		if s3.PublicBaseURL == "" {
			return fmt.Errorf("%w: storage.s3.public_base_url (S3_PUBLIC_BASE_URL)", ErrConfigMissing)
		}
		if s3.Region == "" {
			s3.Region = "auto"
		}
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: drive, s3", c.Storage.Backend)
	}
	return nil
}

func (c *Config) normalizeSession() error {
	c.Session.Backend = lowerOr(c.Session.Backend, SessionMemory)
	switch c.Session.Backend {
	case SessionMemory:
	case SessionRedis:
		if strings.TrimSpace(c.Session.Redis.Addr) == "" {
			return fmt.Errorf("%w: session.redis.addr (REDIS_ADDR)", ErrConfigMissing)
		}
		if c.Session.Redis.TTL < 0 {
			return fmt.Errorf("session.redis.ttl must be >= 0")
		}
	default:
		return fmt.Errorf("invalid session.backend %q; allowed: memory, redis", c.Session.Backend)
	}
	return nil
}

// UsesDatabase reports whether the PostgreSQL journal is the tabular backend.
func (c *Config) UsesDatabase() bool {
	return c.Store.Backend == StorePostgres
}

func lowerOr(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
