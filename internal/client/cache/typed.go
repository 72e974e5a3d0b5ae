package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Encode turns values into records keyed by id.
func Encode[T any](values []T, id func(T) string) ([]Record, error) {
	out := make([]Record, 0, len(values))
	for _, v := range values {
		body, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding record %s: %w", id(v), err)
		}
		out = append(out, Record{ID: id(v), Body: body})
	}
	return out, nil
}

// Load decodes every record of domain into T, ordered by id.
func Load[T any](ctx context.Context, s *Store, domain string) ([]T, error) {
	records, err := s.All(ctx, domain)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := json.Unmarshal(r.Body, &v); err != nil {
			return nil, fmt.Errorf("decoding %s/%s: %w", domain, r.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
