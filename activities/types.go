// Package activities is the client side of the ByteFit activity API.
package activities

import (
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/bytefit/internal/errors"
)

type ActivityType string

const (
	TypeRunning        ActivityType = "RUNNING"
	TypeWalking        ActivityType = "WALKING"
	TypeCycling        ActivityType = "CYCLING"
	TypeSwimming       ActivityType = "SWIMMING"
	TypeWeightTraining ActivityType = "WEIGHT_TRAINING"
	TypeYoga           ActivityType = "YOGA"
	TypeHIIT           ActivityType = "HIIT"
	TypeCardio         ActivityType = "CARDIO"
	TypeStretching     ActivityType = "STRETCHING"
	TypeOther          ActivityType = "OTHER"
)

// Types lists every activity type in display order
var Types = []ActivityType{
	TypeRunning, TypeWalking, TypeCycling, TypeSwimming, TypeWeightTraining,
	TypeYoga, TypeHIIT, TypeCardio, TypeStretching, TypeOther,
}

var typeLabels = map[ActivityType]string{
	TypeRunning:        "Running",
	TypeWalking:        "Walking",
	TypeCycling:        "Cycling",
	TypeSwimming:       "Swimming",
	TypeWeightTraining: "Weight Training",
	TypeYoga:           "Yoga",
	TypeHIIT:           "HIIT",
	TypeCardio:         "Cardio",
	TypeStretching:     "Stretching",
	TypeOther:          "Other",
}

func (t ActivityType) Valid() bool {
	_, ok := typeLabels[t]
	return ok
}

// Display returns the type to show for t; unknown values display as OTHER
func (t ActivityType) Display() ActivityType {
	if t.Valid() {
		return t
	}
	return TypeOther
}

func (t ActivityType) Label() string {
	return typeLabels[t.Display()]
}

// ParseType accepts the wire value or the label in any case
func ParseType(s string) (ActivityType, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_"))
	if t := ActivityType(norm); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown activity type %q", errors.ErrInvalidActivity, s)
}

type Activity struct {
	ID                string         `json:"id"`
	UserID            string         `json:"userId"`
	Type              ActivityType   `json:"type"`
	Duration          float64        `json:"duration"`
	CaloriesBurned    float64        `json:"caloriesBurned"`
	StartTime         *time.Time     `json:"startTime,omitempty"`
	AdditionalMetrics map[string]any `json:"additionalMetrics,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	Recommendation    *string        `json:"recommendation,omitempty"`
	Improvements      []string       `json:"improvements,omitempty"`
	Suggestions       []string       `json:"suggestions,omitempty"`
	Safety            []string       `json:"safety,omitempty"`
}

// Recommendation is the AI generated advice for one activity
type Recommendation struct {
	ID             string       `json:"id"`
	ActivityID     string       `json:"activityId"`
	UserID         string       `json:"userId"`
	ActivityType   ActivityType `json:"activityType"`
	Recommendation string       `json:"recommendation"`
	Improvements   []string     `json:"improvements,omitempty"`
	Suggestions    []string     `json:"suggestions,omitempty"`
	Safety         []string     `json:"safety,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

type CreateActivityInput struct {
	Type              ActivityType   `json:"type"`
	Duration          float64        `json:"duration"`
	CaloriesBurned    float64        `json:"caloriesBurned"`
	StartTime         *time.Time     `json:"startTime,omitempty"`
	AdditionalMetrics map[string]any `json:"additionalMetrics"`
}

func (in CreateActivityInput) Validate() error {
	switch {
	case !in.Type.Valid():
		return fmt.Errorf("%w: unknown activity type %q", errors.ErrInvalidActivity, in.Type)
	case in.Duration <= 0:
		return fmt.Errorf("%w: duration must be greater than zero", errors.ErrInvalidActivity)
	case in.CaloriesBurned < 0:
		return fmt.Errorf("%w: calories burned cannot be negative", errors.ErrInvalidActivity)
	}
	return nil
}
