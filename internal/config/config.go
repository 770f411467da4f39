// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/invoicely/internal/session"
	"github.com/jeranaias/invoicely/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete invoicely configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Session     SessionConfig     `toml:"session" json:"session"`
	API         APIConfig         `toml:"api" json:"api"`
	Credentials CredentialsConfig `toml:"credentials" json:"credentials"`
	Log         LogConfig         `toml:"log" json:"log"`
	Telemetry   TelemetryConfig   `toml:"telemetry" json:"telemetry"`
	UI          UIConfig          `toml:"ui" json:"ui"`
	Server      ServerConfig      `toml:"server" json:"server"`
}

// SessionConfig holds the scheduler timings in milliseconds.
type SessionConfig struct {
	SessionTimeoutMs   int64 `toml:"session_timeout_ms" json:"session_timeout_ms"`
	ExtendedTimeoutMs  int64 `toml:"extended_timeout_ms" json:"extended_timeout_ms"`
	RefreshThresholdMs int64 `toml:"refresh_threshold_ms" json:"refresh_threshold_ms"`
	CheckIntervalMs    int64 `toml:"check_interval_ms" json:"check_interval_ms"`
	RefreshTimeoutMs   int64 `toml:"refresh_timeout_ms" json:"refresh_timeout_ms"`
}

// APIConfig locates the invoicing backend.
type APIConfig struct {
	BaseURL     string  `toml:"base_url" json:"base_url"`
	RefreshPath string  `toml:"refresh_path" json:"refresh_path"`
	LoginPath   string  `toml:"login_path" json:"login_path"`
	SignInPath  string  `toml:"signin_path" json:"signin_path"`
	TimeoutMs   int64   `toml:"timeout_ms" json:"timeout_ms"`
	RateLimit   float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst   int     `toml:"rate_burst" json:"rate_burst"`
}

// CredentialsConfig controls cookie persistence.
type CredentialsConfig struct {
	// Path defaults to ~/.invoicely/session.json.
	Path  string `toml:"path" json:"path"`
	Watch bool   `toml:"watch" json:"watch"`
}

// LogConfig selects the log level and encoder.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	// File, when set, receives logs instead of stderr.
	File string `toml:"file" json:"file"`
}

// TelemetryConfig toggles the OpenTelemetry recorder and its OTLP export.
type TelemetryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Endpoint is the OTLP/HTTP collector base URL, e.g. http://localhost:4318.
	Endpoint         string `toml:"endpoint" json:"endpoint"`
	ExportIntervalMs int64  `toml:"export_interval_ms" json:"export_interval_ms"`
}

// UIConfig controls the terminal panel and the sign-in redirect.
type UIConfig struct {
	OpenBrowser   bool  `toml:"open_browser" json:"open_browser"`
	RefreshRateMs int64 `toml:"refresh_rate_ms" json:"refresh_rate_ms"`
}

// ServerConfig controls the loopback activity bridge.
type ServerConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Listen  string `toml:"listen" json:"listen"`
	// Token, when set, is required as a bearer token on every request.
	Token string `toml:"token" json:"-"`
	// AllowedOrigin is the CORS origin allowed to report activity.
	// Empty means the origin of api.base_url.
	AllowedOrigin string  `toml:"allowed_origin" json:"allowed_origin"`
	RateLimit     float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst     int     `toml:"rate_burst" json:"rate_burst"`
}

// BridgeOrigin is the CORS origin the activity bridge accepts: the
// configured one, or the scheme and host of api.base_url.
func (c *Config) BridgeOrigin() string {
	if c.Server.AllowedOrigin != "" {
		return c.Server.AllowedOrigin
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// Default returns a configuration with all defaults set.
func Default() *Config {
	return &Config{
		Version: "1",
		Session: SessionConfig{
			SessionTimeoutMs:   session.DefaultSessionTimeout.Milliseconds(),
			ExtendedTimeoutMs:  session.DefaultExtendedTimeout.Milliseconds(),
			RefreshThresholdMs: session.DefaultRefreshThreshold.Milliseconds(),
			CheckIntervalMs:    session.DefaultCheckInterval.Milliseconds(),
			RefreshTimeoutMs:   session.DefaultRefreshTimeout.Milliseconds(),
		},
		API: APIConfig{
			BaseURL:     "https://app.invoicely.example",
			RefreshPath: "/api/auth/refresh",
			LoginPath:   "/api/auth/login",
			SignInPath:  "/sign-in",
			TimeoutMs:   30000,
			RateLimit:   2,
			RateBurst:   4,
		},
		Credentials: CredentialsConfig{
			Watch: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Telemetry: TelemetryConfig{
			Endpoint:         "http://localhost:4318",
			ExportIntervalMs: 60000,
		},
		UI: UIConfig{
			OpenBrowser:   true,
			RefreshRateMs: 1000,
		},
		Server: ServerConfig{
			Listen:    "127.0.0.1:8787",
			RateLimit: 20,
			RateBurst: 40,
		},
	}
}

// SessionSettings converts the millisecond fields to a scheduler config.
func (c *Config) SessionSettings() session.Config {
	return session.Config{
		SessionTimeout:   ms(c.Session.SessionTimeoutMs),
		ExtendedTimeout:  ms(c.Session.ExtendedTimeoutMs),
		RefreshThreshold: ms(c.Session.RefreshThresholdMs),
		CheckInterval:    ms(c.Session.CheckIntervalMs),
	}
}

// RefreshTimeout bounds a single refresh request.
func (c *Config) RefreshTimeout() time.Duration { return ms(c.Session.RefreshTimeoutMs) }

// APITimeout bounds a single API request.
func (c *Config) APITimeout() time.Duration { return ms(c.API.TimeoutMs) }

// TelemetryExportInterval is the OTLP export cadence.
func (c *Config) TelemetryExportInterval() time.Duration { return ms(c.Telemetry.ExportIntervalMs) }

// UIRefreshRate is how often the panel redraws.
func (c *Config) UIRefreshRate() time.Duration { return ms(c.UI.RefreshRateMs) }

func ms(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the invoicely configuration directory path.
// INVOICELY_HOME overrides the default ~/.invoicely.
func ConfigDir() (string, error) {
	if dir := os.Getenv("INVOICELY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".invoicely"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CredentialsPath returns the cookie file path, honoring credentials.path.
func (c *Config) CredentialsPath() (string, error) {
	if c.Credentials.Path != "" {
		return c.Credentials.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.invoicely/config.toml, falling back to defaults when it does
// not exist. Environment overrides are applied last, then the result is
// validated.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg := Default()
		return finish(cfg)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg. Keys absent from the file keep their
// current values.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// SetDefaults fills zero-valued fields that have no meaningful zero.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Session.RefreshTimeoutMs == 0 {
		c.Session.RefreshTimeoutMs = d.Session.RefreshTimeoutMs
	}
	if c.API.RefreshPath == "" {
		c.API.RefreshPath = d.API.RefreshPath
	}
	if c.API.LoginPath == "" {
		c.API.LoginPath = d.API.LoginPath
	}
	if c.API.SignInPath == "" {
		c.API.SignInPath = d.API.SignInPath
	}
	if c.API.TimeoutMs == 0 {
		c.API.TimeoutMs = d.API.TimeoutMs
	}
	if c.API.RateBurst == 0 {
		c.API.RateBurst = d.API.RateBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.UI.RefreshRateMs == 0 {
		c.UI.RefreshRateMs = d.UI.RefreshRateMs
	}
	if c.Server.Listen == "" {
		c.Server.Listen = d.Server.Listen
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = d.Server.RateBurst
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = d.Telemetry.Endpoint
	}
	if c.Telemetry.ExportIntervalMs == 0 {
		c.Telemetry.ExportIntervalMs = d.Telemetry.ExportIntervalMs
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path.
// SECURITY: Config files are written 0600 (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# invoicely configuration file\n")
	buf.WriteString("# Durations are in milliseconds.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	positive := []struct {
		field string
		value int64
	}{
		{"session.session_timeout_ms", c.Session.SessionTimeoutMs},
		{"session.extended_timeout_ms", c.Session.ExtendedTimeoutMs},
		{"session.refresh_threshold_ms", c.Session.RefreshThresholdMs},
		{"session.check_interval_ms", c.Session.CheckIntervalMs},
		{"session.refresh_timeout_ms", c.Session.RefreshTimeoutMs},
		{"api.timeout_ms", c.API.TimeoutMs},
		{"ui.refresh_rate_ms", c.UI.RefreshRateMs},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, ValidationError{
				Field:   p.field,
				Message: fmt.Sprintf("must be greater than 0, got %d", p.value),
			})
		}
	}

	s := c.Session
	if s.RefreshThresholdMs > 0 && s.SessionTimeoutMs > 0 && s.RefreshThresholdMs >= s.SessionTimeoutMs {
		errs = append(errs, ValidationError{
			Field:   "session.refresh_threshold_ms",
			Message: fmt.Sprintf("must be less than session_timeout_ms (%d), got %d", s.SessionTimeoutMs, s.RefreshThresholdMs),
		})
	}
	if s.SessionTimeoutMs > 0 && s.ExtendedTimeoutMs > 0 && s.SessionTimeoutMs > s.ExtendedTimeoutMs {
		errs = append(errs, ValidationError{
			Field:   "session.extended_timeout_ms",
			Message: fmt.Sprintf("must be at least session_timeout_ms (%d), got %d", s.SessionTimeoutMs, s.ExtendedTimeoutMs),
		})
	}

	if u, err := url.Parse(c.API.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("must be an absolute URL, got %q", c.API.BaseURL),
		})
	} else if u.Scheme != "https" && u.Scheme != "http" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("unsupported scheme %q", u.Scheme),
		})
	}
	for field, p := range map[string]string{
		"api.refresh_path": c.API.RefreshPath,
		"api.login_path":   c.API.LoginPath,
		"api.signin_path":  c.API.SignInPath,
	} {
		if !strings.HasPrefix(p, "/") {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("must start with '/', got %q", p)})
		}
	}
	if c.Telemetry.Enabled {
		if u, err := url.Parse(c.Telemetry.Endpoint); err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "telemetry.endpoint",
				Message: fmt.Sprintf("must be an absolute URL when telemetry is enabled, got %q", c.Telemetry.Endpoint),
			})
		}
	}
	if c.Server.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.listen",
				Message: fmt.Sprintf("must be host:port, got %q", c.Server.Listen),
			})
		}
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit", Message: "must not be negative"})
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "api.rate_limit", Message: "must not be negative"})
	}
	if c.API.RateBurst < 1 {
		errs = append(errs, ValidationError{Field: "api.rate_burst", Message: "must be at least 1"})
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		sortErrors(errs)
		return errs
	}
	return nil
}

// sortErrors orders errors by field so output is stable.
func sortErrors(errs ValidateErrors) {
	for i := 1; i < len(errs); i++ {
		for j := i; j > 0 && errs[j].Field < errs[j-1].Field; j-- {
			errs[j], errs[j-1] = errs[j-1], errs[j]
		}
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies INVOICELY_* environment variables:
//   - INVOICELY_API_URL: overrides api.base_url
//   - INVOICELY_SESSION_TIMEOUT_MS, INVOICELY_EXTENDED_TIMEOUT_MS,
//     INVOICELY_REFRESH_THRESHOLD_MS, INVOICELY_CHECK_INTERVAL_MS
//   - INVOICELY_LOG_LEVEL, INVOICELY_LOG_FORMAT
//   - INVOICELY_TELEMETRY: enables telemetry when "1" or "true"
//   - INVOICELY_LISTEN: enables the activity bridge on this address
//   - INVOICELY_OTLP_ENDPOINT: overrides telemetry.endpoint
//   - INVOICELY_NO_BROWSER: disables opening the browser on expiry
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("INVOICELY_API_URL"); v != "" {
		c.API.BaseURL = v
	}

	envMs := map[string]*int64{
		"INVOICELY_SESSION_TIMEOUT_MS":   &c.Session.SessionTimeoutMs,
		"INVOICELY_EXTENDED_TIMEOUT_MS":  &c.Session.ExtendedTimeoutMs,
		"INVOICELY_REFRESH_THRESHOLD_MS": &c.Session.RefreshThresholdMs,
		"INVOICELY_CHECK_INTERVAL_MS":    &c.Session.CheckIntervalMs,
	}
	for name, dst := range envMs {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			} else {
				fmt.Fprintf(os.Stderr, "Warning: ignoring %s=%q: not an integer\n", name, v)
			}
		}
	}

	if v := os.Getenv("INVOICELY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("INVOICELY_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("INVOICELY_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = isTrue(v)
	}
	if v := os.Getenv("INVOICELY_LISTEN"); v != "" {
		c.Server.Listen = v
		c.Server.Enabled = true
	}
	if v := os.Getenv("INVOICELY_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := os.Getenv("INVOICELY_NO_BROWSER"); v != "" && isTrue(v) {
		c.UI.OpenBrowser = false
	}
}

func isTrue(v string) bool {
	v = strings.ToLower(v)
	return v == "1" || v == "true" || v == "yes"
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "session.check_interval_ms").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field := fieldByTag(v, part)
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag is name.
func fieldByTag(v reflect.Value, name string) reflect.Value {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
		if tag == name {
			return v.Field(i)
		}
	}
	return reflect.Value{}
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(isTrue(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys lists every settable key in dot notation.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			tag, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
			if tag == "" || tag == "-" {
				continue
			}
			if t.Field(i).Type.Kind() == reflect.Struct {
				walk(t.Field(i).Type, prefix+tag+".")
				continue
			}
			keys = append(keys, prefix+tag)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone returns a copy of the config. Config holds no reference types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Load errors fall back to defaults with a warning. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
