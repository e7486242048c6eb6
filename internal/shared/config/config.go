package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/uniedit/photos/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Photos   PhotosConfig   `mapstructure:"photos"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration.
// Driver "memory" keeps all state in process and is meant for development.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsMemory reports whether the in-process stores are selected.
func (c *DatabaseConfig) IsMemory() bool {
	return c.Driver == "memory"
}

// RedisConfig holds Redis configuration. An empty address disables Redis.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether Redis is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Address != ""
}

// StorageConfig holds object storage configuration. An empty bucket disables
// physical release; purges then only remove records.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Enabled reports whether a bucket is configured.
func (c *StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PhotosConfig holds storage quota configuration.
type PhotosConfig struct {
	DefaultPlan      string           `mapstructure:"default_plan"`
	Plans            []model.PlanTier `mapstructure:"plans"`
	MaxPhotoBytes    int64            `mapstructure:"max_photo_bytes"`
	LargeFileBytes   int64            `mapstructure:"large_file_bytes"`
	LargeFileLimit   int              `mapstructure:"large_file_limit"`
	LowQualityLimit  int              `mapstructure:"low_quality_limit"`
	UsageCacheTTL    time.Duration    `mapstructure:"usage_cache_ttl"`
	TrashRetention   time.Duration    `mapstructure:"trash_retention"`
	PurgeInterval    time.Duration    `mapstructure:"purge_interval"`
	SweepBatchSize   int              `mapstructure:"sweep_batch_size"`
	ReleaseAttempts  int              `mapstructure:"release_attempts"`
	ReleaseBackoff   time.Duration    `mapstructure:"release_backoff"`
	ReleaseRate      float64          `mapstructure:"release_rate"`
	ReleaseBurst     int              `mapstructure:"release_burst"`
	LeftoverGrace    time.Duration    `mapstructure:"leftover_grace"`
	MutationsPerMin  int              `mapstructure:"mutations_per_minute"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from the given file, or from the default
// search paths when path is empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/photos")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("PHOTOS")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if password := os.Getenv("PHOTOS_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("PHOTOS_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("PHOTOS_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid config: database.driver must be postgres or memory, got %q", c.Database.Driver)
	}
	if c.Photos.TrashRetention < 0 {
		return fmt.Errorf("invalid config: photos.trash_retention must not be negative")
	}
	if c.Photos.MaxPhotoBytes < 0 {
		return fmt.Errorf("invalid config: photos.max_photo_bytes must not be negative")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "photos")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", false)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Storage defaults
	v.SetDefault("storage.region", "auto")

	// Photos defaults
	v.SetDefault("photos.default_plan", "free")
	v.SetDefault("photos.max_photo_bytes", 50*1024*1024)
	v.SetDefault("photos.large_file_bytes", 5*1024*1024)
	v.SetDefault("photos.large_file_limit", 50)
	v.SetDefault("photos.low_quality_limit", 20)
	v.SetDefault("photos.usage_cache_ttl", 5*time.Minute)
	v.SetDefault("photos.trash_retention", 30*24*time.Hour)
	v.SetDefault("photos.purge_interval", time.Hour)
	v.SetDefault("photos.sweep_batch_size", 500)
	v.SetDefault("photos.release_attempts", 3)
	v.SetDefault("photos.release_backoff", 200*time.Millisecond)
	v.SetDefault("photos.release_rate", 50.0)
	v.SetDefault("photos.release_burst", 10)
	v.SetDefault("photos.leftover_grace", time.Hour)
	v.SetDefault("photos.mutations_per_minute", 120)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
