// Package config loads the client's configuration. Values come from defaults,
// then an optional YAML file, then environment variables, then command-line
// overrides, each layer replacing the one before it.
//
// The YAML file is named by --config or NOTES_CONFIG. Environment variables
// carry the same settings and secrets, so a file is never required.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/notes-client/internal/apiclient"
	"github.com/kuitang/notes-client/internal/ratelimit"
	"github.com/kuitang/notes-client/internal/urlutil"
)

const (
	defaultS3Region = "auto"
	defaultMCPAddr  = "127.0.0.1:8765"
	appDirName      = "notes-client"
)

// Config holds all client configuration.
type Config struct {
	// API
	APIURL         string
	RequestTimeout time.Duration
	ShareBaseURL   string // origin share links are built on

	// Local state
	StateDir string // holds the encrypted state database and its key file
	StateKey string // 64 hex characters; when empty a key file in StateDir is used

	// Outbound rate limiting
	RateLimitConfig ratelimit.Config

	// MCP bridge
	MCPAddr           string
	MCPToken          string   // bearer token required by the bridge; generated per run when empty
	MCPAllowedOrigins []string // browser origins allowed to call the bridge; none by default

	// S3 export target (AWS_ env vars, same names the AWS SDK reads)
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // BUCKET_NAME
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// fileConfig is the YAML layout. Pointers distinguish "absent" from zero.
type fileConfig struct {
	API struct {
		URL          *string `yaml:"url"`
		Timeout      *string `yaml:"timeout"`
		ShareBaseURL *string `yaml:"share_base_url"`
	} `yaml:"api"`
	State struct {
		Dir *string `yaml:"dir"`
		Key *string `yaml:"key"`
	} `yaml:"state"`
	RateLimit struct {
		RPS       *float64 `yaml:"rps"`
		Burst     *int     `yaml:"burst"`
		AuthRPS   *float64 `yaml:"auth_rps"`
		AuthBurst *int     `yaml:"auth_burst"`
	} `yaml:"rate_limit"`
	MCP struct {
		Addr           *string  `yaml:"addr"`
		Token          *string  `yaml:"token"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"mcp"`
	S3 struct {
		Endpoint  *string `yaml:"endpoint"`
		Region    *string `yaml:"region"`
		AccessKey *string `yaml:"access_key_id"`
		SecretKey *string `yaml:"secret_access_key"`
		Bucket    *string `yaml:"bucket"`
	} `yaml:"s3"`
}

// Overrides are command-line values applied last. Empty fields are ignored.
type Overrides struct {
	APIURL   string
	StateDir string
	MCPAddr  string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		APIURL:          apiclient.DefaultBaseURL,
		RequestTimeout:  apiclient.DefaultTimeout,
		StateDir:        defaultStateDir(),
		RateLimitConfig: ratelimit.DefaultConfig,
		MCPAddr:         defaultMCPAddr,
		AWSRegion:       defaultS3Region,
	}
}

// LoadConfig builds the configuration from path (or NOTES_CONFIG when path is
// empty), the environment and ov, and validates it.
func LoadConfig(path string, ov Overrides) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("NOTES_CONFIG"))
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()
		if err := cfg.applyYAML(f); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyOverrides(ov)
	if cfg.ShareBaseURL == "" {
		cfg.ShareBaseURL = urlutil.Origin(cfg.APIURL)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyYAML(r io.Reader) error {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	setString(&c.APIURL, fc.API.URL)
	setString(&c.ShareBaseURL, fc.API.ShareBaseURL)
	if fc.API.Timeout != nil {
		d, err := time.ParseDuration(*fc.API.Timeout)
		if err != nil {
			return fmt.Errorf("api.timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	setString(&c.StateDir, fc.State.Dir)
	setString(&c.StateKey, fc.State.Key)
	if v := fc.RateLimit.RPS; v != nil {
		c.RateLimitConfig.RPS = *v
	}
	if v := fc.RateLimit.Burst; v != nil {
		c.RateLimitConfig.Burst = *v
	}
	if v := fc.RateLimit.AuthRPS; v != nil {
		c.RateLimitConfig.AuthRPS = *v
	}
	if v := fc.RateLimit.AuthBurst; v != nil {
		c.RateLimitConfig.AuthBurst = *v
	}
	setString(&c.MCPAddr, fc.MCP.Addr)
	setString(&c.MCPToken, fc.MCP.Token)
	if fc.MCP.AllowedOrigins != nil {
		c.MCPAllowedOrigins = fc.MCP.AllowedOrigins
	}
	setString(&c.AWSEndpointS3, fc.S3.Endpoint)
	setString(&c.AWSRegion, fc.S3.Region)
	setString(&c.AWSAccessKeyID, fc.S3.AccessKey)
	setString(&c.AWSSecretAccessKey, fc.S3.SecretKey)
	setString(&c.AWSBucketName, fc.S3.Bucket)
	return nil
}

func (c *Config) applyEnv() {
	c.APIURL = getEnvOrDefault("NOTES_API_URL", c.APIURL)
	c.RequestTimeout = parseDurationOrDefault("NOTES_REQUEST_TIMEOUT", c.RequestTimeout)
	c.ShareBaseURL = getEnvOrDefault("NOTES_SHARE_BASE_URL", c.ShareBaseURL)

	c.StateDir = getEnvOrDefault("NOTES_STATE_DIR", c.StateDir)
	c.StateKey = getEnvOrDefault("NOTES_STATE_KEY", c.StateKey)

	c.RateLimitConfig.RPS = parseFloat64OrDefault("NOTES_RATE_RPS", c.RateLimitConfig.RPS)
	c.RateLimitConfig.Burst = parseIntOrDefault("NOTES_RATE_BURST", c.RateLimitConfig.Burst)
	c.RateLimitConfig.AuthRPS = parseFloat64OrDefault("NOTES_AUTH_RATE_RPS", c.RateLimitConfig.AuthRPS)
	c.RateLimitConfig.AuthBurst = parseIntOrDefault("NOTES_AUTH_RATE_BURST", c.RateLimitConfig.AuthBurst)

	c.MCPAddr = getEnvOrDefault("NOTES_MCP_ADDR", c.MCPAddr)
	c.MCPToken = getEnvOrDefault("NOTES_MCP_TOKEN", c.MCPToken)
	c.MCPAllowedOrigins = parseListOrDefault("NOTES_MCP_ALLOWED_ORIGINS", c.MCPAllowedOrigins)

	c.AWSEndpointS3 = getEnvOrDefault("AWS_ENDPOINT_URL_S3", c.AWSEndpointS3)
	c.AWSRegion = getEnvOrDefault("AWS_REGION", c.AWSRegion)
	c.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", c.AWSAccessKeyID)
	c.AWSSecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", c.AWSSecretAccessKey)
	c.AWSBucketName = getEnvOrDefault("BUCKET_NAME", c.AWSBucketName)
}

func (c *Config) applyOverrides(ov Overrides) {
	if v := strings.TrimSpace(ov.APIURL); v != "" {
		c.APIURL = v
	}
	if v := strings.TrimSpace(ov.StateDir); v != "" {
		c.StateDir = v
	}
	if v := strings.TrimSpace(ov.MCPAddr); v != "" {
		c.MCPAddr = v
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("NOTES_API_URL must be an http(s) URL, got %q", c.APIURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, "NOTES_REQUEST_TIMEOUT must be positive")
	}
	if c.ShareBaseURL != "" {
		if u, err := url.Parse(c.ShareBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("NOTES_SHARE_BASE_URL must be an absolute URL, got %q", c.ShareBaseURL))
		}
	}

	if c.StateDir == "" {
		errs = append(errs, "NOTES_STATE_DIR is required")
	}
	if c.StateKey != "" {
		if len(c.StateKey) != 64 {
			errs = append(errs, "NOTES_STATE_KEY must be 64 hex characters (32 bytes)")
		} else if _, err := hex.DecodeString(c.StateKey); err != nil {
			errs = append(errs, "NOTES_STATE_KEY must be hex encoded")
		}
	}

	if c.RateLimitConfig.RPS < 0 || c.RateLimitConfig.AuthRPS < 0 {
		errs = append(errs, "NOTES_RATE_RPS and NOTES_AUTH_RATE_RPS must not be negative (0 disables)")
	}
	if c.RateLimitConfig.RPS > 0 && c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "NOTES_RATE_BURST must be positive")
	}
	if c.RateLimitConfig.AuthRPS > 0 && c.RateLimitConfig.AuthBurst <= 0 {
		errs = append(errs, "NOTES_AUTH_RATE_BURST must be positive")
	}

	if c.MCPAddr == "" {
		errs = append(errs, "NOTES_MCP_ADDR is required")
	}
	for _, o := range c.MCPAllowedOrigins {
		if urlutil.Origin(o) == "" {
			errs = append(errs, fmt.Sprintf("NOTES_MCP_ALLOWED_ORIGINS entries must be http(s) origins, got %q", o))
		}
	}

	// S3 export is optional, but a half-configured target is an error.
	if c.AWSBucketName != "" || c.AWSEndpointS3 != "" {
		if c.AWSBucketName == "" {
			errs = append(errs, "BUCKET_NAME is required when AWS_ENDPOINT_URL_S3 is set")
		}
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required for S3 export")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required for S3 export")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// S3Enabled reports whether an S3 export target is configured.
func (c *Config) S3Enabled() bool {
	return c.AWSBucketName != ""
}

// StateKeyFile is where the generated state key lives when StateKey is unset.
func (c *Config) StateKeyFile() string {
	return filepath.Join(c.StateDir, "state.key")
}

// PrintSummary writes a human-readable summary without secrets.
func (c *Config) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "  API:     %s (timeout %s)\n", c.APIURL, c.RequestTimeout)
	fmt.Fprintf(w, "  Share:   %s\n", c.ShareBaseURL)
	fmt.Fprintf(w, "  State:   %s\n", c.StateDir)
	if c.StateKey != "" {
		fmt.Fprintln(w, "  Key:     from NOTES_STATE_KEY")
	} else {
		fmt.Fprintf(w, "  Key:     %s\n", c.StateKeyFile())
	}
	fmt.Fprintf(w, "  Limits:  %g rps (burst %d), auth %g rps (burst %d)\n",
		c.RateLimitConfig.RPS, c.RateLimitConfig.Burst, c.RateLimitConfig.AuthRPS, c.RateLimitConfig.AuthBurst)
	if c.MCPToken != "" {
		fmt.Fprintf(w, "  MCP:     %s (configured bearer token)\n", c.MCPAddr)
	} else {
		fmt.Fprintf(w, "  MCP:     %s (bearer token generated per run)\n", c.MCPAddr)
	}
	if len(c.MCPAllowedOrigins) > 0 {
		fmt.Fprintf(w, "  Origins: %s\n", strings.Join(c.MCPAllowedOrigins, ", "))
	}
	if c.S3Enabled() {
		fmt.Fprintf(w, "  Export:  s3://%s (endpoint %s)\n", c.AWSBucketName, c.AWSEndpointS3)
	} else {
		fmt.Fprintln(w, "  Export:  local directory only")
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName)
	}
	return filepath.Join(os.TempDir(), appDirName)
}

// Helper functions for parsing environment variables

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// parseListOrDefault reads a comma-separated list, dropping blank entries.
func parseListOrDefault(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
