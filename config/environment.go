package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/tidwall/jsonc"
)

// Keys required in every environment file.
const (
	KeyMailboxEndpoint = "MAILBOX_ENDPOINT"
	KeyAdminToken      = "ADMIN_TOKEN"
)

// EnvPrefix marks process environment variables that override file values,
// e.g. GRANT_ADMIN_TOKEN.
const EnvPrefix = "GRANT_"

// Settings are the values read from an environment file.
type Settings struct {
	MailboxEndpoint string
	AdminToken      string
}

// ConfigError reports a missing or invalid environment file or value.
type ConfigError struct {
	Path string
	Key  string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("invalid environment values in %s: %s: %v", e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("invalid environment file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var errMissing = errors.New("missing or empty")

// jsoncParser is koanf's JSON parser behind a pass that strips comments and
// trailing commas.
type jsoncParser struct {
	json *json.JSON
}

func (p jsoncParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	return p.json.Unmarshal(jsonc.ToJSON(b))
}

func (p jsoncParser) Marshal(m map[string]interface{}) ([]byte, error) {
	return p.json.Marshal(m)
}

// LoadSettings reads path, overlays GRANT_* variables from the process and an
// optional .env next to it, and checks both required keys are set.
func LoadSettings(path string) (Settings, error) {
	dotenv := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Settings{}, &ConfigError{Path: dotenv, Err: err}
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), jsoncParser{json: json.Parser()}); err != nil {
		return Settings{}, &ConfigError{Path: path, Err: err}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(s, EnvPrefix)
	}), nil); err != nil {
		return Settings{}, &ConfigError{Path: path, Err: err}
	}

	settings := Settings{
		MailboxEndpoint: strings.TrimSpace(k.String(KeyMailboxEndpoint)),
		AdminToken:      strings.TrimSpace(k.String(KeyAdminToken)),
	}
	if settings.MailboxEndpoint == "" {
		return Settings{}, &ConfigError{Path: path, Key: KeyMailboxEndpoint, Err: errMissing}
	}
	if settings.AdminToken == "" {
		return Settings{}, &ConfigError{Path: path, Key: KeyAdminToken, Err: errMissing}
	}
	u, err := url.Parse(settings.MailboxEndpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Settings{}, &ConfigError{Path: path, Key: KeyMailboxEndpoint, Err: fmt.Errorf("%q is not an absolute http(s) URL", settings.MailboxEndpoint)}
	}
	return settings, nil
}
