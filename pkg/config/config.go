// Package config loads chatledger configuration from an optional JSON file,
// a .env file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	kJson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ClientSecretFile is the default path to the Google OAuth credentials JSON file.
const ClientSecretFile = "data/client_secret.json"

// Backend names.
const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendJSONFile = "jsonfile"
)

// Config holds the application configuration.
type Config struct {
	// Backend selects the ledger store.
	// Environment variable: LEDGER_BACKEND
	Backend string `koanf:"LEDGER_BACKEND"`

	// SpreadsheetID is the Google Sheets document holding one tab per month.
	// Environment variable: SPREADSHEET_ID
	SpreadsheetID string `koanf:"SPREADSHEET_ID"`

	// HeaderRow is the 1-based row holding the column labels.
	// Environment variable: HEADER_ROW
	HeaderRow int `koanf:"HEADER_ROW"`

	// CredentialsFile is an OAuth client secret or service account key file.
	// Environment variable: GOOGLE_CREDENTIALS_FILE
	CredentialsFile string `koanf:"GOOGLE_CREDENTIALS_FILE"`

	// ServiceAccountEmail and PrivateKey enable service account auth without a key file.
	ServiceAccountEmail string `koanf:"GOOGLE_SERVICE_ACCOUNT_EMAIL"`
	PrivateKey          string `koanf:"GOOGLE_PRIVATE_KEY"`

	// Locale picks month names, category labels and reply texts.
	// Environment variable: LOCALE
	Locale string `koanf:"LOCALE"`

	// Timezone decides which month "now" falls in.
	// Environment variable: TIMEZONE
	Timezone string `koanf:"TIMEZONE"`

	// GeminiAPIKey and GeminiModel configure the classifier.
	GeminiAPIKey string `koanf:"GEMINI_API_KEY"`
	GeminiModel  string `koanf:"GEMINI_MODEL"`

	// OwnerNumber is the only sender whose messages are processed.
	// Environment variable: OWNER_NUMBER
	OwnerNumber string `koanf:"OWNER_NUMBER"`

	// ListenAddr is the webhook listen address.
	ListenAddr string `koanf:"LISTEN_ADDR"`

	// WebhookToken, when set, must be sent as a bearer token by the chat gateway.
	WebhookToken string `koanf:"WEBHOOK_TOKEN"`

	// LedgerFile is the path used by the jsonfile backend.
	LedgerFile string `koanf:"LEDGER_FILE"`

	// Postgres configures the postgres backend.
	Postgres PostgresConfig `koanf:",squash"`
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string `koanf:"POSTGRES_HOST"`
	Port     int    `koanf:"POSTGRES_PORT"`
	Database string `koanf:"POSTGRES_DB"`
	User     string `koanf:"POSTGRES_USER"`
	Password string `koanf:"POSTGRES_PASSWORD"`
	SSLMode  string `koanf:"POSTGRES_SSLMODE"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Backend:         BackendSheets,
		HeaderRow:       2,
		CredentialsFile: ClientSecretFile,
		Locale:          "id",
		Timezone:        "Asia/Jakarta",
		GeminiModel:     "gemini-2.5-flash-lite",
		ListenAddr:      ":8080",
		LedgerFile:      "data/ledger.json",
		Postgres: PostgresConfig{
			Port:    5432,
			SSLMode: "disable",
		},
	}
}

// Load reads configuration. configPath may be empty. A .env file in the
// working directory is loaded into the process environment when present.
func Load(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("loading .env file: %w", err)
	}

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), kJson.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	// Only pick up keys this program knows about; the rest of the environment is noise.
	known := knownKeys()
	if err := k.Load(env.Provider("", ".", func(s string) string {
		if _, ok := known[s]; !ok {
			return ""
		}
		return s
	}), nil); err != nil {
		return Config{}, fmt.Errorf("loading config from environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	// PEM keys pasted into .env files usually carry literal \n sequences.
	cfg.PrivateKey = strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")

	return cfg, nil
}

// Validate checks that the keys the selected backend needs are present.
func (c Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendSheets:
		if c.SpreadsheetID == "" {
			errs = append(errs, errors.New("SPREADSHEET_ID is required for the sheets backend"))
		}
		if c.HeaderRow < 1 {
			errs = append(errs, fmt.Errorf("HEADER_ROW must be at least 1, got %d", c.HeaderRow))
		}
		if c.CredentialsFile == "" && (c.ServiceAccountEmail == "" || c.PrivateKey == "") {
			errs = append(errs, errors.New("either GOOGLE_CREDENTIALS_FILE or GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_PRIVATE_KEY are required"))
		}
	case BackendPostgres:
		if c.Postgres.Host == "" {
			errs = append(errs, errors.New("POSTGRES_HOST is required for the postgres backend"))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, errors.New("POSTGRES_DB is required for the postgres backend"))
		}
		if c.Postgres.User == "" {
			errs = append(errs, errors.New("POSTGRES_USER is required for the postgres backend"))
		}
	case BackendJSONFile:
		if c.LedgerFile == "" {
			errs = append(errs, errors.New("LEDGER_FILE is required for the jsonfile backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.Backend))
	}

	if c.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GEMINI_API_KEY is required"))
	}
	switch {
	case c.OwnerNumber == "":
		errs = append(errs, errors.New("OWNER_NUMBER is required"))
	case NormalizeNumber(c.OwnerNumber) == "":
		errs = append(errs, fmt.Errorf("OWNER_NUMBER %q contains no digits", c.OwnerNumber))
	}

	return errors.Join(errs...)
}

// NormalizeNumber strips formatting and any chat suffix from a phone number,
// so "+62 812-3456" and "628123456@s.whatsapp.net" both become "628123456".
func NormalizeNumber(n string) string {
	n = strings.TrimSpace(n)
	if i := strings.IndexByte(n, '@'); i >= 0 {
		n = n[:i]
	}
	var b strings.Builder
	for _, r := range n {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func knownKeys() map[string]struct{} {
	keys := []string{
		"LEDGER_BACKEND", "SPREADSHEET_ID", "HEADER_ROW", "GOOGLE_CREDENTIALS_FILE",
		"GOOGLE_SERVICE_ACCOUNT_EMAIL", "GOOGLE_PRIVATE_KEY", "LOCALE", "TIMEZONE",
		"GEMINI_API_KEY", "GEMINI_MODEL", "OWNER_NUMBER", "LISTEN_ADDR", "WEBHOOK_TOKEN",
		"LEDGER_FILE", "POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_DB", "POSTGRES_USER",
		"POSTGRES_PASSWORD", "POSTGRES_SSLMODE",
	}
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}
