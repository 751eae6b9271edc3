package pacing

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
)

// Hard safety bounds for the recommended dial rate, in calls per minute.
const (
	FloorDialRate   = 10
	CeilingDialRate = 50
)

// PacingSettings drive the intelligent pacing loop. Rates are percentages.
type PacingSettings struct {
	MinDialRate        int     `json:"min_dial_rate" koanf:"min_dial_rate" validate:"gte=1"`
	MaxDialRate        int     `json:"max_dial_rate" koanf:"max_dial_rate" validate:"gtefield=MinDialRate"`
	TargetAnswerRate   float64 `json:"target_answer_rate" koanf:"target_answer_rate" validate:"gte=0,lte=100"`
	MaxAbandonmentRate float64 `json:"max_abandonment_rate" koanf:"max_abandonment_rate" validate:"gte=0,lte=100"`
	LearningRate       float64 `json:"learning_rate" koanf:"learning_rate" validate:"gt=0,lte=1"`
	AutoAdjustEnabled  bool    `json:"auto_adjust_enabled" koanf:"auto_adjust_enabled"`
}

// DefaultPacingSettings returns the values a new owner starts with.
func DefaultPacingSettings() PacingSettings {
	return PacingSettings{
		MinDialRate:        10,
		MaxDialRate:        50,
		TargetAnswerRate:   30,
		MaxAbandonmentRate: 3,
		LearningRate:       0.1,
		AutoAdjustEnabled:  false,
	}
}

// Bounds returns the configured dial-rate bounds.
func (s PacingSettings) Bounds() RateBounds {
	return RateBounds{Min: s.MinDialRate, Max: s.MaxDialRate}
}

// Validate checks the settings against their declared constraints.
func (s PacingSettings) Validate() error {
	return validateStruct("pacing settings", s)
}

// ConcurrencySettings caps simultaneous calls for an account or campaign.
type ConcurrencySettings struct {
	MaxConcurrentCalls      int  `json:"max_concurrent_calls" koanf:"max_concurrent_calls" validate:"gte=0"`
	CallsPerMinute          int  `json:"calls_per_minute" koanf:"calls_per_minute" validate:"gte=0"`
	MaxCallsPerAgent        int  `json:"max_calls_per_agent" koanf:"max_calls_per_agent" validate:"gte=0"`
	RetellMaxConcurrent     int  `json:"retell_max_concurrent" koanf:"retell_max_concurrent" validate:"gte=0"`
	AssistableMaxConcurrent int  `json:"assistable_max_concurrent" koanf:"assistable_max_concurrent" validate:"gte=0"`
	TransferQueueEnabled    bool `json:"transfer_queue_enabled" koanf:"transfer_queue_enabled"`
}

// DefaultConcurrencySettings returns the values a new owner starts with.
func DefaultConcurrencySettings() ConcurrencySettings {
	return ConcurrencySettings{
		MaxConcurrentCalls:      10,
		CallsPerMinute:          20,
		MaxCallsPerAgent:        3,
		RetellMaxConcurrent:     5,
		AssistableMaxConcurrent: 5,
		TransferQueueEnabled:    false,
	}
}

// Validate checks the settings against their declared constraints.
func (s ConcurrencySettings) Validate() error {
	return validateStruct("concurrency settings", s)
}

// RateBounds is an optional custom clamp applied on top of the safety bounds.
type RateBounds struct {
	Min int
	Max int
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateStruct runs struct-tag validation and folds every failed field into
// a single validation AppError.
func validateStruct(subject string, v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) {
		return errors.NewValidationError("INVALID_"+strings.ToUpper(strings.ReplaceAll(subject, " ", "_")), err.Error())
	}

	fields := make(map[string]interface{}, len(fieldErrs))
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg := describeFieldError(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), msg))
	}

	return errors.NewValidationError(
		"INVALID_"+strings.ToUpper(strings.ReplaceAll(subject, " ", "_")),
		fmt.Sprintf("invalid %s: %s", subject, strings.Join(msgs, "; ")),
	).WithDetails(fields)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	ve, ok := err.(validator.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gte":
		return fmt.Sprintf("must be >= %s (got %v)", fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("must be > %s (got %v)", fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("must be <= %s (got %v)", fe.Param(), fe.Value())
	case "lt":
		return fmt.Sprintf("must be < %s (got %v)", fe.Param(), fe.Value())
	case "gtefield":
		return fmt.Sprintf("must be >= %s (got %v)", fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	case "required":
		return "is required"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
