package activities_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/bytefit/activities"
	"github.com/jrsteele09/bytefit/internal/errors"
	"github.com/jrsteele09/bytefit/internal/utils"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	activity    *activities.Activity
	activityErr error
	rec         *activities.Recommendation
	recErr      error
}

func (s fakeSource) GetActivity(context.Context, string) (*activities.Activity, error) {
	return s.activity, s.activityErr
}

func (s fakeSource) GetRecommendation(context.Context, string) (*activities.Recommendation, error) {
	return s.rec, s.recErr
}

func TestLoadDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("activity failure is fatal", func(t *testing.T) {
		_, err := activities.LoadDetail(ctx, fakeSource{activityErr: errors.ErrFetchFailed}, "1")
		require.ErrorIs(t, err, errors.ErrFetchFailed)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := activities.LoadDetail(ctx, fakeSource{}, "")
		require.ErrorIs(t, err, errors.ErrMissingRouteParameter)
	})

	t.Run("recommendation failure degrades silently", func(t *testing.T) {
		d, err := activities.LoadDetail(ctx, fakeSource{
			activity: &activities.Activity{ID: "1"},
			recErr:   errors.ErrNotFound,
		}, "1")
		require.NoError(t, err)
		require.Nil(t, d.Recommendation)
		require.False(t, d.HasAdvice())
		require.Equal(t, "No recommendations available at this time.", d.RecommendationText())
		require.Empty(t, d.Improvements())
	})

	t.Run("activity advice wins over the recommendation", func(t *testing.T) {
		d, err := activities.LoadDetail(ctx, fakeSource{
			activity: &activities.Activity{
				ID:             "1",
				Recommendation: utils.Ptr("Keep going"),
				Improvements:   []string{"pace"},
			},
			rec: &activities.Recommendation{
				Recommendation: "Rest",
				Improvements:   []string{"cadence"},
				Suggestions:    []string{"hydrate"},
				Safety:         []string{"warm up"},
			},
		}, "1")
		require.NoError(t, err)
		require.True(t, d.HasAdvice())
		require.Equal(t, "Keep going", d.RecommendationText())
		require.Equal(t, []string{"pace"}, d.Improvements())
		require.Equal(t, []string{"hydrate"}, d.Suggestions())
		require.Equal(t, []string{"warm up"}, d.Safety())
	})
}

func TestSummarize(t *testing.T) {
	s := activities.Summarize(nil)
	require.Zero(t, s.Count)
	require.Zero(t, s.Share(activities.TypeRunning))

	s = activities.Summarize([]activities.Activity{
		{Type: activities.TypeRunning, Duration: 30, CaloriesBurned: 300},
		{Type: activities.TypeRunning, Duration: 20, CaloriesBurned: 200},
		{Type: activities.TypeYoga, Duration: 60, CaloriesBurned: 100},
		{Type: "PILATES", Duration: 10, CaloriesBurned: 0},
	})
	require.Equal(t, 4, s.Count)
	require.InDelta(t, 120, s.TotalDuration, 0.001)
	require.InDelta(t, 600, s.TotalCalories, 0.001)
	require.InDelta(t, 150, s.AverageCalories, 0.001)
	require.Equal(t, 2, s.ByType[activities.TypeRunning])
	require.Equal(t, 1, s.ByType[activities.TypeOther])
	require.InDelta(t, 50, s.Share(activities.TypeRunning), 0.001)
}
