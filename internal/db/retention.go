package db

import (
	"context"
	"time"
)

// DeleteBefore removes requests whose native submission time is before
// cutoff. Rows that only carry a legacy raw timestamp are never purged.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("submitted_at IS NOT NULL AND submitted_at < ?", cutoff).
		Delete(&Permission{})
	return res.RowsAffected, res.Error
}
