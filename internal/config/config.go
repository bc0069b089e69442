package config

import (
	"time"

	"github.com/phrazzld/scry-fsrs/internal/domain/srs"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log       LogConfig       `mapstructure:"log" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Progress  ProgressConfig  `mapstructure:"progress" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Review    ReviewConfig    `mapstructure:"review" validate:"required"`
	Worker    WorkerConfig    `mapstructure:"worker" validate:"required"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the storage backend
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	// URL is a postgres connection string or a sqlite file path
	URL             string        `mapstructure:"url" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"min=0"`
	// AutoMigrate applies pending migrations whenever the database is opened
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// ProgressConfig selects where daily progress counters are kept.
type ProgressConfig struct {
	Backend  string `mapstructure:"backend" validate:"required,oneof=database redis"`
	RedisURL string `mapstructure:"redis_url" validate:"required_if=Backend redis,omitempty,url"`
}

// SchedulerConfig mirrors srs.SchedulerConfig in configuration form.
// An empty Weights list selects the reference weights.
type SchedulerConfig struct {
	RequestRetention float64         `mapstructure:"request_retention" validate:"gt=0,lte=1"`
	MaximumInterval  int             `mapstructure:"maximum_interval" validate:"min=1"`
	EnableFuzz       bool            `mapstructure:"enable_fuzz"`
	EnableShortTerm  bool            `mapstructure:"enable_short_term"`
	EasyGraduates    bool            `mapstructure:"easy_graduates"`
	LearningSteps    []time.Duration `mapstructure:"learning_steps" validate:"dive,gt=0"`
	RelearningSteps  []time.Duration `mapstructure:"relearning_steps" validate:"dive,gt=0"`
	Weights          []float64       `mapstructure:"weights" validate:"omitempty,len=21"`
}

// Engine converts the configuration to the engine's form.
func (s SchedulerConfig) Engine() srs.SchedulerConfig {
	weights := append([]float64(nil), s.Weights...)
	if len(weights) == 0 {
		weights = append(weights, srs.DefaultWeights[:]...)
	}
	return srs.SchedulerConfig{
		RequestRetention: s.RequestRetention,
		MaximumInterval:  s.MaximumInterval,
		Weights:          weights,
		EnableFuzz:       s.EnableFuzz,
		EnableShortTerm:  s.EnableShortTerm,
		EasyGraduates:    s.EasyGraduates,
		LearningSteps:    append([]time.Duration(nil), s.LearningSteps...),
		RelearningSteps:  append([]time.Duration(nil), s.RelearningSteps...),
	}
}

// LimitsConfig holds the global daily limits. -1 means unlimited.
type LimitsConfig struct {
	NewCardsPerDay   int `mapstructure:"new_cards_per_day" validate:"min=-1"`
	MaxReviewsPerDay int `mapstructure:"max_reviews_per_day" validate:"min=-1"`
}

// Engine converts the limits to the engine's form.
func (l LimitsConfig) Engine() srs.DailyLimits {
	return srs.DailyLimits{
		NewCardsPerDay:   limit(l.NewCardsPerDay),
		MaxReviewsPerDay: limit(l.MaxReviewsPerDay),
	}
}

func limit(n int) *int {
	if n < 0 {
		return nil
	}
	return srs.Limit(n)
}

// ReviewConfig controls review sessions.
type ReviewConfig struct {
	// Timezone is the IANA zone whose midnight starts a new review day
	Timezone string `mapstructure:"timezone" validate:"required,timezone"`
}

// Location returns the review day's time zone. Timezone is validated on load.
func (r ReviewConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Day returns the review day containing t, as a date at midnight UTC.
func (r ReviewConfig) Day(t time.Time) time.Time {
	local := t.In(r.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// WorkerConfig sizes the background worker pool.
type WorkerConfig struct {
	Count     int `mapstructure:"count" validate:"min=1,max=64"`
	QueueSize int `mapstructure:"queue_size" validate:"min=1"`
}
