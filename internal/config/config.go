package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       App       `mapstructure:"app"`
	Store     Store     `mapstructure:"store"`
	Server    Server    `mapstructure:"server"`
	Training  Training  `mapstructure:"training"`
	Recommend Recommend `mapstructure:"recommend"`
}

// App holds general application configuration
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"` // Root for the SQLite store and model snapshots
}

// Store holds persistence configuration
type Store struct {
	Path string `mapstructure:"path"` // SQLite database path; defaults under App.DataDir
}

// Server holds HTTP server configuration
type Server struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

// Training holds offline training configuration
type Training struct {
	UseReduction   bool    `mapstructure:"use_reduction"`   // Apply LSA reduction after TF-IDF
	MaxComponents  int     `mapstructure:"max_components"`  // Reduction component ceiling
	Factors        int     `mapstructure:"factors"`         // Latent factor width
	Iterations     int     `mapstructure:"iterations"`      // ALS sweeps
	Regularization float64 `mapstructure:"regularization"`  // ALS ridge term
	SnapshotDir    string  `mapstructure:"snapshot_dir"`    // Model artifact directory
}

// Recommend holds serving-time scoring configuration
type Recommend struct {
	ProfileWeight  float64 `mapstructure:"profile_weight"`   // Weight of the history profile vector
	GoalWeight     float64 `mapstructure:"goal_weight"`      // Weight of the goal query vector
	ColdStartScore float64 `mapstructure:"cold_start_score"` // Placeholder confidence for heuristic results
	RecentLimit    int     `mapstructure:"recent_limit"`     // Recent interactions considered for the profile
	DefaultK       int     `mapstructure:"default_k"`
}

var globalConfig *Config

// Load reads configuration from an optional config file, .env and
// environment variables (LESSONREC_ prefix), and returns the merged result.
// Subsequent calls return the already-loaded configuration.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".lessonrec")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.SetEnvPrefix("LESSONREC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the loaded configuration, loading defaults if Load has not
// been called yet.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
		return cfg
	}
	return globalConfig
}

// Reset clears the cached configuration. Intended for tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".lessonrec")

	viper.SetDefault("store.path", "")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8085)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.allow_origins", "*")

	viper.SetDefault("training.use_reduction", true)
	viper.SetDefault("training.max_components", 256)
	viper.SetDefault("training.factors", 64)
	viper.SetDefault("training.iterations", 20)
	viper.SetDefault("training.regularization", 0.01)
	viper.SetDefault("training.snapshot_dir", "")

	viper.SetDefault("recommend.profile_weight", 0.8)
	viper.SetDefault("recommend.goal_weight", 0.2)
	viper.SetDefault("recommend.cold_start_score", 0.4)
	viper.SetDefault("recommend.recent_limit", 20)
	viper.SetDefault("recommend.default_k", 6)
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Training.Factors <= 0 {
		return fmt.Errorf("training factors must be positive, got %d", cfg.Training.Factors)
	}
	if cfg.Training.MaxComponents <= 0 {
		return fmt.Errorf("training max_components must be positive, got %d", cfg.Training.MaxComponents)
	}
	if cfg.Recommend.ProfileWeight < 0 || cfg.Recommend.GoalWeight < 0 {
		return fmt.Errorf("recommend weights must be non-negative")
	}
	return nil
}

// DataDir returns the configured data directory, falling back to the default.
func (c *Config) DataDir() string {
	if c.App.DataDir == "" {
		return ".lessonrec"
	}
	return c.App.DataDir
}

// StorePath returns the SQLite path, defaulting under the data directory.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return c.DataDir()
}

// SnapshotDir returns the model artifact directory, defaulting under the
// data directory.
func (c *Config) SnapshotDir() string {
	if c.Training.SnapshotDir != "" {
		return c.Training.SnapshotDir
	}
	return c.DataDir() + "/model_store"
}
