// Package config provides centralized configuration management for the feed job.
// It loads configuration from environment variables (and an optional config
// file) with sensible defaults and validates all settings before any connection
// is attempted, so a misconfigured run fails fast.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Config holds all job configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	SFTP     SFTPConfig     `mapstructure:"sftp"`
	Report   ReportConfig   `mapstructure:"report"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DatabaseConfig holds the sales database connection settings.
type DatabaseConfig struct {
	// Driver selects the SQL dialect: sqlserver, postgres or sqlite3 (default: sqlserver)
	Driver string `mapstructure:"driver" env:"DB_DRIVER" default:"sqlserver"`

	// Server is the database host. Not used by sqlite3.
	Server string `mapstructure:"server" env:"DB_SERVER"`

	// Port overrides the driver's default port when non-zero
	Port int `mapstructure:"port" env:"DB_PORT" default:"0"`

	// Database is the database name, or the file path for sqlite3
	Database string `mapstructure:"database" env:"DB_DATABASE"`

	Username string `mapstructure:"username" env:"DB_USERNAME"`
	Password string `mapstructure:"password" env:"DB_PASSWORD"`
}

// SFTPConfig holds the supplier's file-transfer endpoint settings.
type SFTPConfig struct {
	Hostname string `mapstructure:"hostname" env:"SFTP_HOSTNAME"`

	// Port is the SSH port (default: 22)
	Port int `mapstructure:"port" env:"SFTP_PORT" default:"22"`

	Username string `mapstructure:"username" env:"SFTP_USERNAME"`
	Password string `mapstructure:"password" env:"SFTP_PASSWORD"`

	// RemoteDir is where the daily file is deposited (default: /)
	RemoteDir string `mapstructure:"remote_dir" env:"SFTP_REMOTE_DIR" default:"/"`

	// KnownHostsFile enables host key verification when set
	KnownHostsFile string `mapstructure:"known_hosts" env:"SFTP_KNOWN_HOSTS"`

	// DialTimeout bounds the TCP connect and SSH handshake (default: 30s)
	DialTimeout time.Duration `mapstructure:"dial_timeout" env:"SFTP_DIAL_TIMEOUT" default:"30s"`
}

// ReportConfig holds output file settings.
type ReportConfig struct {
	// Encoding of the CSV bytes: utf-8, iso-8859-1, windows-1252 (default: utf-8)
	Encoding string `mapstructure:"encoding" env:"REPORT_ENCODING" default:"utf-8"`

	// Timezone used to compute "yesterday"; empty means the process local zone
	Timezone string `mapstructure:"timezone" env:"REPORT_TIMEZONE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `mapstructure:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `mapstructure:"format" env:"LOG_FORMAT" default:"text"`
}

// Supported database drivers.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite3"
)

// NeedsCredentials reports whether the driver talks to a server that requires
// host and credentials.
func (c *DatabaseConfig) NeedsCredentials() bool {
	return strings.ToLower(c.Driver) != DriverSQLite
}

// Addr returns the SSH address in host:port format.
func (c *SFTPConfig) Addr() string {
	return net.JoinHostPort(c.Hostname, strconv.Itoa(c.Port))
}

// Location resolves the report timezone. An empty Timezone yields time.Local.
func (c *ReportConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// String returns a safe string representation of the config for logging.
// Passwords are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Database: {Driver: %q, Server: %q, Port: %d, Database: %q, Username: %q, Password: [MASKED]}, ",
		c.Database.Driver, c.Database.Server, c.Database.Port, c.Database.Database, c.Database.Username))
	b.WriteString(fmt.Sprintf("SFTP: {Addr: %q, Username: %q, Password: [MASKED], RemoteDir: %q, HostKeyCheck: %v}, ",
		c.SFTP.Addr(), c.SFTP.Username, c.SFTP.RemoteDir, c.SFTP.KnownHostsFile != ""))
	b.WriteString(fmt.Sprintf("Report: {Encoding: %q, Timezone: %q}, ", c.Report.Encoding, c.Report.Timezone))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
