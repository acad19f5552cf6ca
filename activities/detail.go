package activities

import (
	"context"
	"fmt"

	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/internal/utils"
)

// DetailLoadError is shown when an activity cannot be loaded
const DetailLoadError = "Failed to load activity details"

const noRecommendation = "No recommendations available at this time."

// Detail is an activity together with whatever advice is available for it
type Detail struct {
	Activity       Activity
	Recommendation *Recommendation
}

// HasAdvice reports whether any AI content can be shown
func (d Detail) HasAdvice() bool {
	return d.Activity.Recommendation != nil || d.Recommendation != nil
}

// RecommendationText prefers the text stored on the activity
func (d Detail) RecommendationText() string {
	if text := utils.Value(d.Activity.Recommendation); text != "" {
		return text
	}
	if d.Recommendation != nil && d.Recommendation.Recommendation != "" {
		return d.Recommendation.Recommendation
	}
	return noRecommendation
}

func (d Detail) Improvements() []string {
	return pick(d.Activity.Improvements, d.recommendation().Improvements)
}

func (d Detail) Suggestions() []string {
	return pick(d.Activity.Suggestions, d.recommendation().Suggestions)
}

func (d Detail) Safety() []string {
	return pick(d.Activity.Safety, d.recommendation().Safety)
}

func (d Detail) recommendation() Recommendation {
	return utils.Value(d.Recommendation)
}

func pick(primary, fallback []string) []string {
	if len(primary) > 0 {
		return primary
	}
	return fallback
}

type detailSource interface {
	GetActivity(ctx context.Context, id string) (*Activity, error)
	GetRecommendation(ctx context.Context, activityID string) (*Recommendation, error)
}

// LoadDetail fails only when the activity itself cannot be fetched. A missing
// or failing recommendation leaves Detail.Recommendation nil.
func LoadDetail(ctx context.Context, src detailSource, id string) (*Detail, error) {
	if id == "" {
		return nil, fmt.Errorf("[activities LoadDetail] %w: id", errors.ErrMissingRouteParameter)
	}
	activity, err := src.GetActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("[activities LoadDetail] %w", err)
	}

	d := &Detail{Activity: *activity}
	if rec, err := src.GetRecommendation(ctx, id); err == nil {
		d.Recommendation = rec
	}
	return d, nil
}
