package corpus

import "context"

// Stats holds aggregated counts for the whole store.
type Stats struct {
	Texts        int `json:"texts"`
	Compositions int `json:"compositions"`
}

// GetStats returns a snapshot of store-wide statistics.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := s.stmtCountTexts.QueryRowContext(ctx).Scan(&stats.Texts); err != nil {
		return nil, err
	}
	if err := s.stmtCountCompositions.QueryRowContext(ctx).Scan(&stats.Compositions); err != nil {
		return nil, err
	}
	return &stats, nil
}
