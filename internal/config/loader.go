package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// ErrMissingConfig is matched by errors.Is for any *MissingConfigError.
var ErrMissingConfig = errors.New("missing configuration")

// MissingConfigError lists the required environment variables that were not set.
type MissingConfigError struct {
	Keys []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Keys, ", "))
}

// Is reports whether target is ErrMissingConfig.
func (e *MissingConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// Options controls where configuration is read from and how strictly it is checked.
type Options struct {
	// File is an optional YAML/JSON/TOML config file. Environment variables
	// take precedence over values from the file.
	File string

	// DryRun skips the SFTP requirements; the file is written locally instead.
	DryRun bool
}

// Load reads configuration from environment variables and the optional config file.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load(opts Options) (*Config, error) {
	v := viper.New()

	if err := bindStruct(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config load: read %s: %w", opts.File, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.validate(!opts.DryRun); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// bindStruct recursively binds struct fields to their environment variables
// and registers their defaults. Keys follow the mapstructure tag path, so
// "database.server" is fed by DB_SERVER or by the config file.
func bindStruct(v *viper.Viper, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		key := field.Tag.Get("mapstructure")
		if key == "" {
			key = strings.ToLower(field.Name)
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		if field.Type.Kind() == reflect.Struct {
			if err := bindStruct(v, field.Type, key); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		if err := v.BindEnv(key, envName); err != nil {
			return fmt.Errorf("bind %s: %w", envName, err)
		}
		if def, ok := field.Tag.Lookup("default"); ok {
			v.SetDefault(key, def)
		}
	}
	return nil
}

// Validate checks that the configuration is complete and valid for a full run
// (database and SFTP).
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(requireTransfer bool) error {
	var missing []string
	need := func(value, env string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, env)
		}
	}

	if c.Database.NeedsCredentials() {
		need(c.Database.Server, "DB_SERVER")
	}
	need(c.Database.Database, "DB_DATABASE")
	if c.Database.NeedsCredentials() {
		need(c.Database.Username, "DB_USERNAME")
		need(c.Database.Password, "DB_PASSWORD")
	}
	if requireTransfer {
		need(c.SFTP.Hostname, "SFTP_HOSTNAME")
		need(c.SFTP.Username, "SFTP_USERNAME")
		need(c.SFTP.Password, "SFTP_PASSWORD")
	}

	if len(missing) > 0 {
		return &MissingConfigError{Keys: missing}
	}

	var errs []string

	validDrivers := map[string]bool{DriverSQLServer: true, DriverPostgres: true, DriverSQLite: true}
	if !validDrivers[strings.ToLower(c.Database.Driver)] {
		errs = append(errs, fmt.Sprintf("DB_DRIVER (%q) must be one of: sqlserver, postgres, sqlite3", c.Database.Driver))
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT (%d) must be 0-65535", c.Database.Port))
	}

	if requireTransfer {
		if c.SFTP.Port <= 0 || c.SFTP.Port > 65535 {
			errs = append(errs, fmt.Sprintf("SFTP_PORT (%d) must be 1-65535", c.SFTP.Port))
		}
		if c.SFTP.DialTimeout <= 0 {
			errs = append(errs, "SFTP_DIAL_TIMEOUT must be positive")
		}
	}

	validEncodings := map[string]bool{
		"utf-8": true, "utf8": true,
		"iso-8859-1": true, "latin1": true,
		"windows-1252": true, "cp1252": true,
	}
	if !validEncodings[strings.ToLower(strings.TrimSpace(c.Report.Encoding))] {
		errs = append(errs, fmt.Sprintf("REPORT_ENCODING (%q) must be one of: utf-8, iso-8859-1, windows-1252", c.Report.Encoding))
	}
	if _, err := c.Report.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("REPORT_TIMEZONE: %v", err))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
