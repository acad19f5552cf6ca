package activities

// Stats are the dashboard figures derived from a user's activities
type Stats struct {
	Count           int
	TotalDuration   float64
	TotalCalories   float64
	AverageCalories float64
	ByType          map[ActivityType]int
}

// Share is the percentage of activities of type t
func (s Stats) Share(t ActivityType) float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.ByType[t]) * 100 / float64(s.Count)
}

func Summarize(list []Activity) Stats {
	s := Stats{ByType: make(map[ActivityType]int)}
	for _, a := range list {
		s.Count++
		s.TotalDuration += a.Duration
		s.TotalCalories += a.CaloriesBurned
		s.ByType[a.Type.Display()]++
	}
	if s.Count > 0 {
		s.AverageCalories = s.TotalCalories / float64(s.Count)
	}
	return s
}
