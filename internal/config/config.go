package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"docstore/internal/objectstore"
	"docstore/internal/offload"
)

const (
	DefaultDBFileName       = ".docstore.db"
	DefaultLogLevel         = "info"
	DefaultOffloadBatchSize = 100

	configFileName = ".docstore.toml"

	configDirEnvKey          = "DOCSTORE_CONFIG_DIR"
	trustProjectConfigEnvKey = "DOCSTORE_TRUST_PROJECT_CONFIG"

	dbPathEnvKey      = "DOCSTORE_DB"
	bucketEnvKey      = "DOCSTORE_S3_BUCKET"
	endpointEnvKey    = "S3_ENDPOINT"
	credentialsEnvKey = "AWS_ACCESS_KEY_ID"
)

// ObjectStoreConfig selects the object tier. S3 is used when AWS credentials
// are present in the environment, with Bucket defaulting to
// objectstore.DefaultBucket; LocalDir takes precedence when set.
type ObjectStoreConfig struct {
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
	LocalDir string `toml:"local_dir"`
}

// OffloadConfig tunes the migration worker.
type OffloadConfig struct {
	BatchSize   int `toml:"batch_size"`
	Concurrency int `toml:"concurrency"`
}

// Config defines runtime configuration for docstore.
type Config struct {
	DBPath      string            `toml:"db_path"`
	LogLevel    string            `toml:"log_level"`
	ObjectStore ObjectStoreConfig `toml:"object_store"`
	Offload     OffloadConfig     `toml:"offload"`

	// S3Enabled is derived from the environment, never read from a file.
	S3Enabled                bool   `toml:"-"`
	TrustedProjectConfigPath string `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		DBPath:   "",
		LogLevel: DefaultLogLevel,
		ObjectStore: ObjectStoreConfig{
			Bucket: objectstore.DefaultBucket,
			Region: objectstore.DefaultRegion,
		},
		Offload: OffloadConfig{
			BatchSize:   DefaultOffloadBatchSize,
			Concurrency: offload.DefaultConcurrency,
		},
	}
}

// ObjectStoreOptions maps the configuration onto objectstore.Open options.
func (c *Config) ObjectStoreOptions() objectstore.Options {
	return objectstore.Options{
		S3Enabled: c.S3Enabled,
		Bucket:    c.ObjectStore.Bucket,
		Region:    c.ObjectStore.Region,
		Endpoint:  c.ObjectStore.Endpoint,
		LocalDir:  c.ObjectStore.LocalDir,
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"db_path",
	"log_level",
	"object_store.bucket",
	"object_store.region",
	"object_store.endpoint",
	"object_store.local_dir",
	"offload.batch_size",
	"offload.concurrency",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "db_path":
		return c.DBPath, nil
	case "log_level":
		return c.LogLevel, nil
	case "object_store.bucket":
		return c.ObjectStore.Bucket, nil
	case "object_store.region":
		return c.ObjectStore.Region, nil
	case "object_store.endpoint":
		return c.ObjectStore.Endpoint, nil
	case "object_store.local_dir":
		return c.ObjectStore.LocalDir, nil
	case "offload.batch_size":
		return strconv.Itoa(c.Offload.BatchSize), nil
	case "offload.concurrency":
		return strconv.Itoa(c.Offload.Concurrency), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}

	if dbPath := os.Getenv(dbPathEnvKey); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if bucket := strings.TrimSpace(os.Getenv(bucketEnvKey)); bucket != "" {
		cfg.ObjectStore.Bucket = bucket
	}
	if endpoint := strings.TrimSpace(os.Getenv(endpointEnvKey)); endpoint != "" {
		cfg.ObjectStore.Endpoint = endpoint
	}
	// Only presence matters; the SDK reads the credentials itself.
	cfg.S3Enabled = os.Getenv(credentialsEnvKey) != ""

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "offload.batch_size", "offload.concurrency":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.ObjectStore.Bucket) == "" {
		c.ObjectStore.Bucket = objectstore.DefaultBucket
	}
	if strings.TrimSpace(c.ObjectStore.Region) == "" {
		c.ObjectStore.Region = objectstore.DefaultRegion
	}
	if c.Offload.BatchSize <= 0 {
		c.Offload.BatchSize = DefaultOffloadBatchSize
	}
	if c.Offload.Concurrency <= 0 {
		c.Offload.Concurrency = offload.DefaultConcurrency
	}
}
