package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"asset-catalog/internal/database"
	"asset-catalog/internal/logging"
	"asset-catalog/internal/remotetree"
)

// Batch size bounds for one backfill sweep.
const (
	DefaultBatchSize = 100
	MinBatchSize     = 50
	MaxBatchSize     = 100
	DefaultWorkers   = 5
)

// Lease kinds accepted by [backfill] lease.
const (
	LeaseFile     = "file"
	LeaseDatabase = "database"
)

// Config holds all application configuration
type Config struct {
	Paths    PathsConfig    `toml:"paths"`
	Remote   RemoteConfig   `toml:"remote"`
	Backfill BackfillConfig `toml:"backfill"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	// Derived paths
	DatabasePath string `toml:"-"`
	ConfigFile   string `toml:"-"`
}

type PathsConfig struct {
	DatabaseDir string `toml:"database_dir"`
	ScratchDir  string `toml:"scratch_dir"`
}

// RemoteConfig selects the remote tree backend. This uses a tagged union
// pattern: Type decides which other fields are relevant. An empty Type
// leaves remote sources unscannable.
type RemoteConfig struct {
	Type      string `toml:"type"` // "memory", "minio" or "s3"
	Endpoint  string `toml:"endpoint,omitempty"`
	Bucket    string `toml:"bucket,omitempty"`
	Region    string `toml:"region,omitempty"`
	AccessKey string `toml:"access_key,omitempty"`
	SecretKey string `toml:"secret_key,omitempty"`
	UseSSL    bool   `toml:"use_ssl,omitempty"`
	SeedDir   string `toml:"seed_dir,omitempty"` // memory only
}

// Enabled reports whether a remote backend is configured.
func (r RemoteConfig) Enabled() bool {
	return r.Type != ""
}

// TreeConfig converts r for remotetree.New.
func (r RemoteConfig) TreeConfig() remotetree.Config {
	return remotetree.Config{
		Type:      r.Type,
		Endpoint:  r.Endpoint,
		Bucket:    r.Bucket,
		Region:    r.Region,
		AccessKey: r.AccessKey,
		SecretKey: r.SecretKey,
		UseSSL:    r.UseSSL,
		SeedDir:   r.SeedDir,
	}
}

type BackfillConfig struct {
	Workers     int    `toml:"workers"`
	BatchSize   int    `toml:"batch_size"`
	MaxAttempts int    `toml:"max_attempts"`
	Lease       string `toml:"lease"` // "file" or "database"
}

type LogConfig struct {
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Listen string `toml:"listen"` // empty disables the metrics server
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			DatabaseDir: "/database",
			ScratchDir:  filepath.Join(os.TempDir(), "asset-catalog"),
		},
		Backfill: BackfillConfig{
			Workers:     DefaultWorkers,
			BatchSize:   DefaultBatchSize,
			MaxAttempts: database.MaxAttempts,
			Lease:       LeaseFile,
		},
	}
}

// LoadConfig reads the TOML file at path (optional), applies environment
// overrides, validates the result and prepares the directories.
func LoadConfig(path string) (*Config, error) {
	printBanner()
	logSystemInfo()

	cfg, err := readConfig(path)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	applyLogLevel(cfg.Log.Level)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.logConfiguration()

	if err := cfg.setupDirectories(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		logging.Warn("Unknown configuration key %q in %s", key.String(), path)
	}
	cfg.ConfigFile = path
	return cfg, nil
}

// applyEnv lets the environment win over the file.
func applyEnv(cfg *Config) {
	cfg.Paths.DatabaseDir = getEnv("DATABASE_DIR", cfg.Paths.DatabaseDir)
	cfg.Paths.ScratchDir = getEnv("SCRATCH_DIR", cfg.Paths.ScratchDir)
	cfg.Backfill.Workers = getEnvInt("BACKFILL_WORKERS", cfg.Backfill.Workers)
	cfg.Metrics.Listen = getEnv("METRICS_LISTEN", cfg.Metrics.Listen)
	cfg.Remote.AccessKey = getEnv("REMOTE_ACCESS_KEY", cfg.Remote.AccessKey)
	cfg.Remote.SecretKey = getEnv("REMOTE_SECRET_KEY", cfg.Remote.SecretKey)
}

// applyLogLevel honours [log] level unless LOG_LEVEL or DEBUG already chose.
func applyLogLevel(name string) {
	if name == "" || os.Getenv("LOG_LEVEL") != "" || os.Getenv("DEBUG") != "" {
		return
	}
	level, ok := logging.ParseLevel(name)
	if !ok {
		logging.Warn("Invalid log level %q in config, keeping %s", name, logging.GetLevel())
		return
	}
	logging.SetLevel(level)
}

func (c *Config) validate() error {
	if c.Paths.DatabaseDir == "" {
		return errors.New("paths.database_dir is required")
	}
	if c.Paths.ScratchDir == "" {
		return errors.New("paths.scratch_dir is required")
	}

	switch c.Remote.Type {
	case "", "memory", "minio", "s3":
	default:
		return fmt.Errorf("remote.type %q: %w", c.Remote.Type, remotetree.ErrUnknownBackend)
	}

	switch strings.ToLower(c.Backfill.Lease) {
	case "":
		c.Backfill.Lease = LeaseFile
	case LeaseFile, LeaseDatabase:
		c.Backfill.Lease = strings.ToLower(c.Backfill.Lease)
	default:
		return fmt.Errorf("backfill.lease must be %q or %q, got %q", LeaseFile, LeaseDatabase, c.Backfill.Lease)
	}

	c.Backfill.BatchSize = clampBatchSize(c.Backfill.BatchSize)

	if c.Backfill.MaxAttempts != database.MaxAttempts {
		if c.Backfill.MaxAttempts != 0 {
			logging.Warn("  backfill.max_attempts is fixed at %d, ignoring %d", database.MaxAttempts, c.Backfill.MaxAttempts)
		}
		c.Backfill.MaxAttempts = database.MaxAttempts
	}

	if c.Backfill.Workers < 0 {
		logging.Warn("  backfill.workers %d is negative, using automatic sizing", c.Backfill.Workers)
		c.Backfill.Workers = 0
	}
	return nil
}

func clampBatchSize(n int) int {
	switch {
	case n == 0:
		return DefaultBatchSize
	case n < MinBatchSize:
		logging.Warn("  backfill.batch_size %d below %d, clamping", n, MinBatchSize)
		return MinBatchSize
	case n > MaxBatchSize:
		logging.Warn("  backfill.batch_size %d above %d, clamping", n, MaxBatchSize)
		return MaxBatchSize
	default:
		return n
	}
}

func (c *Config) logConfiguration() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if c.ConfigFile != "" {
		logging.Info("  Config file:         %s", c.ConfigFile)
	} else {
		logging.Info("  Config file:         (none, defaults and environment)")
	}
	logging.Info("  DATABASE_DIR:        %s", c.Paths.DatabaseDir)
	logging.Info("  SCRATCH_DIR:         %s", c.Paths.ScratchDir)
	if c.Remote.Enabled() {
		logging.Info("  Remote backend:      %s", c.Remote.Type)
		if c.Remote.Endpoint != "" {
			logging.Info("  Remote endpoint:     %s", c.Remote.Endpoint)
		}
		logging.Info("  Remote bucket:       %s", c.Remote.Bucket)
		logging.Info("  Remote credentials:  %s", redact(c.Remote.AccessKey))
	} else {
		logging.Info("  Remote backend:      DISABLED")
	}
	logging.Info("  BACKFILL_WORKERS:    %d", c.Backfill.Workers)
	logging.Info("  Batch size:          %d", c.Backfill.BatchSize)
	logging.Info("  Max attempts:        %d", c.Backfill.MaxAttempts)
	logging.Info("  Lease:               %s", c.Backfill.Lease)
	if c.Metrics.Listen != "" {
		logging.Info("  METRICS_LISTEN:      %s", c.Metrics.Listen)
	} else {
		logging.Info("  METRICS_LISTEN:      DISABLED")
	}
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

func redact(secret string) string {
	if secret == "" {
		return "(default chain)"
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}

func (c *Config) setupDirectories() error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	if c.Paths.DatabaseDir, err = filepath.Abs(c.Paths.DatabaseDir); err != nil {
		return fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", c.Paths.DatabaseDir)

	if c.Paths.ScratchDir, err = filepath.Abs(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("failed to resolve scratch directory path: %w", err)
	}
	logging.Info("  Scratch directory (absolute):  %s", c.Paths.ScratchDir)

	c.DatabasePath = filepath.Join(c.Paths.DatabaseDir, database.FileName)

	for _, dir := range []struct{ path, name string }{
		{c.Paths.DatabaseDir, "database"},
		{c.Paths.ScratchDir, "scratch"},
	} {
		if err := ensureDirectory(dir.path, dir.name); err != nil {
			return fmt.Errorf("%s directory error: %w", dir.name, err)
		}
		logging.Debug("  Testing %s directory write access...", dir.name)
		if err := testWriteAccess(dir.path); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", dir.name, err)
		}
		logging.Info("  [OK] %s directory is writable", dir.name)
	}
	return nil
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
