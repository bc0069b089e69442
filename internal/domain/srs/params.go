package srs

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// WeightCount is the fixed length of the model's parameter vector.
const WeightCount = 21

// Default configuration values used by DefaultSchedulerConfig.
const (
	DefaultRequestRetention = 0.9
	DefaultMaximumInterval  = 36500
)

// DefaultWeights is the reference parameter vector for the memory model.
var DefaultWeights = [WeightCount]float64{
	0.212, 1.2931, 2.3065, 8.2956, // w0..w3: initial stability per rating
	6.4133, 0.8334, // w4, w5: initial difficulty
	3.0194, 0.001, // w6: difficulty delta, w7: mean reversion
	1.8722, 0.1666, 0.796, // w8..w10: recall stability
	1.4835, 0.0614, 0.2629, 1.6483, // w11..w14: lapse stability
	0.6014, 1.8729, // w15: hard penalty, w16: easy bonus
	0.5425, 0.0912, 0.0658, // w17..w19: short-term stability
	0.1542, // w20: forgetting curve decay
}

// weightLowerBounds and weightUpperBounds bound each weight.
var (
	weightLowerBounds = [WeightCount]float64{
		0.001, 0.001, 0.001, 0.001,
		1.0, 0.001, 0.001, 0.001,
		0.0, 0.0, 0.001, 0.001,
		0.001, 0.001, 0.0, 0.0,
		1.0, 0.0, 0.0, 0.0,
		0.1,
	}
	weightUpperBounds = [WeightCount]float64{
		100, 100, 100, 100,
		10, 4, 4, 0.75,
		4.5, 0.8, 3.5, 5.0,
		0.25, 0.9, 4.0, 1.0,
		6.0, 2.0, 2.0, 0.8,
		0.8,
	}
)

// SchedulerConfig holds every tunable of the scheduling engine.
//
// A SchedulerConfig is never defaulted or clamped by the engine: zero values are
// rejected by Validate. Use DefaultSchedulerConfig as a starting point.
type SchedulerConfig struct {
	// RequestRetention is the target probability of recall at the due date
	RequestRetention float64 `json:"request_retention" validate:"gt=0,lte=1"`

	// MaximumInterval caps every day interval
	MaximumInterval int `json:"maximum_interval" validate:"min=1"`

	// Weights is the model's parameter vector
	Weights []float64 `json:"weights" validate:"len=21"`

	// EnableFuzz spreads Review intervals by a seeded jitter
	EnableFuzz bool `json:"enable_fuzz"`

	// EnableShortTerm turns on the step tables and same-day stability updates.
	// When false, cards skip learning steps and graduate by the memory model alone.
	EnableShortTerm bool `json:"enable_short_term"`

	// EasyGraduates sends a New card rated Easy straight to Review
	EasyGraduates bool `json:"easy_graduates"`

	// LearningSteps are the delays between learning reviews of a new card
	LearningSteps []time.Duration `json:"learning_steps" validate:"dive,gt=0"`

	// RelearningSteps are the delays used after a lapse
	RelearningSteps []time.Duration `json:"relearning_steps" validate:"dive,gt=0"`
}

// DefaultSchedulerConfig returns a configuration with the reference weights,
// 90% retention, a 100-year cap, fuzz and short-term scheduling enabled,
// learning steps of 1m and 10m and a single 10m relearning step.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RequestRetention: DefaultRequestRetention,
		MaximumInterval:  DefaultMaximumInterval,
		Weights:          append([]float64(nil), DefaultWeights[:]...),
		EnableFuzz:       true,
		EnableShortTerm:  true,
		EasyGraduates:    true,
		LearningSteps:    []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:  []time.Duration{10 * time.Minute},
	}
}

// Clone returns a copy that shares no slices with c.
func (c SchedulerConfig) Clone() SchedulerConfig {
	out := c
	out.Weights = append([]float64(nil), c.Weights...)
	out.LearningSteps = append([]time.Duration(nil), c.LearningSteps...)
	out.RelearningSteps = append([]time.Duration(nil), c.RelearningSteps...)
	return out
}

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field of the configuration and returns a *ConfigError
// describing the first violation found.
func (c SchedulerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return translateValidationError(err)
	}
	for i, w := range c.Weights {
		if math.IsNaN(w) {
			return configError(fmt.Sprintf("Weights[%d]", i), "must be a number")
		}
		if w < weightLowerBounds[i] || w > weightUpperBounds[i] {
			return configError(
				fmt.Sprintf("Weights[%d]", i),
				fmt.Sprintf("must be within [%g, %g], got %g", weightLowerBounds[i], weightUpperBounds[i], w),
			)
		}
	}
	return nil
}

// translateValidationError maps validator output to a ConfigError.
func translateValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return configError("SchedulerConfig", err.Error())
	}
	fe := verrs[0]
	field := fe.StructField()
	if ns := fe.StructNamespace(); ns != "" {
		// "SchedulerConfig.LearningSteps[0]" -> "LearningSteps[0]"
		if _, rest, ok := strings.Cut(ns, "."); ok {
			field = rest
		}
	}

	var reason string
	switch fe.Tag() {
	case "gt":
		reason = fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value())
	case "lte":
		reason = fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "min":
		reason = fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "len":
		reason = fmt.Sprintf("must have exactly %s elements, got %d", fe.Param(), lenOf(fe.Value()))
	default:
		reason = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return configError(field, reason)
}

func lenOf(v any) int {
	if w, ok := v.([]float64); ok {
		return len(w)
	}
	return 0
}

// DailyLimits caps how many cards are served per deck per day.
// A nil field means unlimited.
type DailyLimits struct {
	NewCardsPerDay   *int `json:"new_cards_per_day,omitempty"`
	MaxReviewsPerDay *int `json:"max_reviews_per_day,omitempty"`
}

// Limit returns a pointer to n, for building DailyLimits literals.
func Limit(n int) *int {
	return &n
}

// Validate rejects negative limits.
func (l DailyLimits) Validate() error {
	if l.NewCardsPerDay != nil && *l.NewCardsPerDay < 0 {
		return configError("NewCardsPerDay", fmt.Sprintf("must not be negative, got %d", *l.NewCardsPerDay))
	}
	if l.MaxReviewsPerDay != nil && *l.MaxReviewsPerDay < 0 {
		return configError("MaxReviewsPerDay", fmt.Sprintf("must not be negative, got %d", *l.MaxReviewsPerDay))
	}
	return nil
}

// DailyProgress counts cards served to the user during one calendar day.
// The caller resets it at its chosen day boundary.
type DailyProgress struct {
	NewCardsSeen    int `json:"new_cards_seen"`
	ReviewCardsSeen int `json:"review_cards_seen"`
}
