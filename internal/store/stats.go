package store

import (
	"context"
	"math"
)

// Stats summarises the stored records.
type Stats struct {
	Backend      string  `json:"backend" yaml:"backend"`
	Records      int     `json:"records" yaml:"records"`
	SessionKeys  int     `json:"session_keys" yaml:"session_keys"`
	Negative     int     `json:"negative" yaml:"negative"`
	Positive     int     `json:"positive" yaml:"positive"`
	MeanFavour   float64 `json:"mean_favour" yaml:"mean_favour"`
	MinFavour    int     `json:"min_favour" yaml:"min_favour"`
	MaxFavour    int     `json:"max_favour" yaml:"max_favour"`
	DistinctUser int     `json:"distinct_users" yaml:"distinct_users"`
}

// Summarize computes Stats over every record in s.
func Summarize(ctx context.Context, s Store, backend string) (*Stats, error) {
	entries, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	st := &Stats{Backend: backend, Records: len(entries)}
	if len(entries) == 0 {
		return st, nil
	}

	users := map[string]struct{}{}
	sum := 0
	st.MinFavour, st.MaxFavour = math.MaxInt, math.MinInt
	for _, e := range entries {
		session, user := e.Key.Split()
		if session != "" {
			st.SessionKeys++
		}
		users[user] = struct{}{}

		f := e.Record.Favour
		sum += f
		switch {
		case f < 0:
			st.Negative++
		case f > 0:
			st.Positive++
		}
		st.MinFavour = min(st.MinFavour, f)
		st.MaxFavour = max(st.MaxFavour, f)
	}
	st.DistinctUser = len(users)
	st.MeanFavour = math.Round(float64(sum)/float64(len(entries))*100) / 100
	return st, nil
}
