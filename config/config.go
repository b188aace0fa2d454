package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/justmike1/sprintbot/jira"
)

const (
	DefaultPath      = "conf/config.yml"
	DefaultUsersPath = "conf/users.yml"

	envPrefix = "SPRINTBOT"
)

// Auth schemes accepted by jira_auth.
const (
	AuthBasic  = "basic"
	AuthCookie = "cookie"
	AuthToken  = "token"
)

type Config struct {
	SlackToken    string `mapstructure:"slack_key"`
	SlackAppToken string `mapstructure:"slack_app_token"`

	JiraBase       string        `mapstructure:"jira_base"`
	JiraAuth       string        `mapstructure:"jira_auth"`
	JiraUsername   string        `mapstructure:"jira_username"`
	JiraPassword   string        `mapstructure:"jira_password"`
	SessionID      string        `mapstructure:"session_id"`
	SessionCookie  string        `mapstructure:"session_cookie"`
	JiraToken      string        `mapstructure:"jira_token"`
	JiraTimeout    time.Duration `mapstructure:"jira_timeout"`
	JiraMaxRetries int           `mapstructure:"jira_max_retries"`
	JiraTimezone   string        `mapstructure:"jira_timezone"`

	UsersFile         string `mapstructure:"users_file"`
	TimeRemainingFrom string `mapstructure:"time_remaining_from"`
	Workers           int    `mapstructure:"workers"`

	HealthAddr           string `mapstructure:"health_addr"`
	HealthAllowedCIDRs   string `mapstructure:"health_allowed_cidrs"`
	HealthTrustedProxies string `mapstructure:"health_trusted_proxies"`
}

// Every key needs a default so SPRINTBOT_* env vars can override it.
var defaults = map[string]any{
	"slack_key":              "",
	"slack_app_token":        "",
	"jira_base":              "",
	"jira_auth":              "",
	"jira_username":          "",
	"jira_password":          "",
	"session_id":             "",
	"session_cookie":         jira.DefaultSessionCookie,
	"jira_token":             "",
	"jira_timeout":           10 * time.Second,
	"jira_max_retries":       2,
	"jira_timezone":          "UTC",
	"users_file":             "",
	"time_remaining_from":    "now",
	"workers":                4,
	"health_addr":            "",
	"health_allowed_cidrs":   "",
	"health_trusted_proxies": "",
}

// MissingError lists required configuration keys that are not set.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required config: " + strings.Join(e.Keys, ", ")
}

// Load reads the YAML config at path (DefaultPath when empty) and applies
// SPRINTBOT_<KEY> environment overrides. A missing file is not an error so
// that environment-only deployments work; Validate catches absent keys.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] %s not found, using environment only", path)
	} else {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.JiraMaxRetries < 0 {
		cfg.JiraMaxRetries = 0
	}
	return cfg, nil
}

// Location resolves jira_timezone, the zone the Jira server renders sprint
// dates in. Empty means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.JiraTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.JiraTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid jira_timezone %q: %w", c.JiraTimezone, err)
	}
	return loc, nil
}

// AuthScheme returns the Jira auth scheme. An explicit jira_auth wins;
// otherwise session_id, then jira_token, then username/password decide.
func (c *Config) AuthScheme() (string, error) {
	switch strings.ToLower(c.JiraAuth) {
	case AuthBasic, AuthCookie, AuthToken:
		return strings.ToLower(c.JiraAuth), nil
	case "":
	default:
		return "", fmt.Errorf("unknown jira_auth %q (want basic, cookie or token)", c.JiraAuth)
	}

	switch {
	case c.SessionID != "":
		return AuthCookie, nil
	case c.JiraToken != "":
		return AuthToken, nil
	case c.JiraUsername != "" || c.JiraPassword != "":
		return AuthBasic, nil
	default:
		return "", &MissingError{Keys: []string{"jira_username/jira_password or session_id or jira_token"}}
	}
}

// Credentials builds the Jira credential provider for the configured scheme.
func (c *Config) Credentials() (jira.Credentials, error) {
	scheme, err := c.AuthScheme()
	if err != nil {
		return nil, err
	}

	var missing []string
	need := func(key, val string) {
		if val == "" {
			missing = append(missing, key)
		}
	}

	var creds jira.Credentials
	switch scheme {
	case AuthCookie:
		need("session_id", c.SessionID)
		creds = jira.SessionCookie{Name: c.SessionCookie, Value: c.SessionID}
	case AuthToken:
		need("jira_token", c.JiraToken)
		creds = jira.NewTokenAuth(c.JiraToken)
	default:
		need("jira_username", c.JiraUsername)
		need("jira_password", c.JiraPassword)
		creds = jira.BasicAuth{Username: c.JiraUsername, Password: c.JiraPassword}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Keys: missing}
	}
	return creds, nil
}

// ValidateJira checks what the report pipeline needs.
func (c *Config) ValidateJira() error {
	var missing []string
	if c.JiraBase == "" {
		missing = append(missing, "jira_base")
	}
	if _, err := c.Credentials(); err != nil {
		var me *MissingError
		if !errors.As(err, &me) {
			return err
		}
		missing = append(missing, me.Keys...)
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}

// ValidateBot checks what the chat bot needs on top of ValidateJira.
func (c *Config) ValidateBot() error {
	var missing []string
	if err := c.ValidateJira(); err != nil {
		var me *MissingError
		if !errors.As(err, &me) {
			return err
		}
		missing = append(missing, me.Keys...)
	}
	if c.SlackToken == "" {
		missing = append(missing, "slack_key")
	}
	if c.SlackAppToken == "" {
		missing = append(missing, "slack_app_token")
	}
	if len(missing) > 0 {
		return &MissingError{Keys: missing}
	}
	return nil
}
