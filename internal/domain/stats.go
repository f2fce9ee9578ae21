package domain

import "math"

// TaskStats holds aggregate counts over the whole task collection.
type TaskStats struct {
	Total        int64
	Pending      int64
	InProgress   int64
	Completed    int64
	HighPriority int64
}

// CompletionRate returns the share of completed tasks as a percentage rounded
// to one decimal place. An empty collection has a rate of 0.
func (s TaskStats) CompletionRate() float64 {
	if s.Total <= 0 {
		return 0
	}
	pct := float64(s.Completed) / float64(s.Total) * 100
	return math.Round(pct*10) / 10
}
