// Package config loads adsconsole configuration: an embedded template with
// sane defaults, optionally overlaid by a user supplied YAML file.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"adsconsole/internal/dbclient"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	SiteConfig struct {
		Label string `yaml:"label" validate:"required"`
		Value string `yaml:"value" validate:"required,hostname_rfc1123"`
	}

	ConsoleConfig struct {
		APIURL         string        `yaml:"api_url" validate:"required,url"`
		TokenKey       string        `yaml:"token_key" validate:"required"`
		Role           string        `yaml:"role" validate:"required"`
		AllowedRoles   []string      `yaml:"allowed_roles" validate:"dive,required"`
		RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
		Refresh        string        `yaml:"refresh"`
		Sites          []SiteConfig  `yaml:"sites" validate:"min=1,unique=Value,dive"`
	}

	StorageConfig struct {
		Driver   string `yaml:"driver" validate:"required,oneof=sqlite mysql postgres mongodb"`
		DSN      string `yaml:"dsn" validate:"required_without=Host"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" validate:"gte=0,lte=65535"`
		Database string `yaml:"database"`
		Username string `yaml:"username"`
		SSLMode  string `yaml:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	}

	TokenConfig struct {
		Token SecretString `yaml:"token" validate:"required"`
		Role  string       `yaml:"role" validate:"required"`
	}

	ServerConfig struct {
		Listen      string        `yaml:"listen" validate:"required,hostname_port"`
		Storage     StorageConfig `yaml:"storage"`
		PasswordKey string        `yaml:"password_key"`
		Tokens      []TokenConfig `yaml:"tokens" validate:"dive"`
		WriteRoles  []string      `yaml:"write_roles" validate:"dive,required"`
	}

	Config struct {
		Version int           `yaml:"version" validate:"eq=1"`
		Console ConsoleConfig `yaml:"console"`
		Server  ServerConfig  `yaml:"server"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

// Conn converts storage settings into what dbclient expects. Validation
// already restricted the driver name.
func (s StorageConfig) Conn() dbclient.Conn {
	d, _ := dbclient.ParseDriver(s.Driver)
	return dbclient.Conn{
		Driver:   d,
		DSN:      s.DSN,
		Host:     s.Host,
		Port:     s.Port,
		Database: s.Database,
		Username: s.Username,
		SSLMode:  s.SSLMode,
	}
}

// TokenRoles returns the bearer token to role table for the API server.
func (s ServerConfig) TokenRoles() map[string]string {
	out := make(map[string]string, len(s.Tokens))
	for _, t := range s.Tokens {
		out[string(t.Token)] = t.Role
	}
	return out
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// only fields we defined are accepted, so yaml.Unmarshal will not do
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of the expanded configuration template and
// performs validation. An empty path yields the defaults.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// sequences present in the file replace the template's ones
	if cfg, err = unmarshalConfig(data, cfg, true); err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

// Dump marshals cfg back to YAML with secrets masked.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
