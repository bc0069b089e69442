package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCRY"

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
//
// configFile names an explicit YAML file. When empty, $SCRY_CONFIG is used, and
// failing that config.yaml is searched for in the working directory and in
// $HOME/.scry. A missing file is not an error unless it was named explicitly.
func Load(configFile string) (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".scry"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg with its struct tags and then checks that the scheduler
// section forms a valid engine configuration.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := cfg.Scheduler.Engine().Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", defaultDatabasePath())
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("progress.backend", "database")
	v.SetDefault("progress.redis_url", "")

	defaults := srs.DefaultSchedulerConfig()
	v.SetDefault("scheduler.request_retention", defaults.RequestRetention)
	v.SetDefault("scheduler.maximum_interval", defaults.MaximumInterval)
	v.SetDefault("scheduler.enable_fuzz", defaults.EnableFuzz)
	v.SetDefault("scheduler.enable_short_term", defaults.EnableShortTerm)
	v.SetDefault("scheduler.easy_graduates", defaults.EasyGraduates)
	v.SetDefault("scheduler.learning_steps", defaults.LearningSteps)
	v.SetDefault("scheduler.relearning_steps", defaults.RelearningSteps)
	v.SetDefault("scheduler.weights", []float64{})

	v.SetDefault("limits.new_cards_per_day", 20)
	v.SetDefault("limits.max_reviews_per_day", 200)

	v.SetDefault("review.timezone", "UTC")

	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.queue_size", 64)
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "scry.db"
	}
	return filepath.Join(home, ".scry", "scry.db")
}
