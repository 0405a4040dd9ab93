package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"permissiondesk/internal/permission"
)

// Store implements permission.Store on PostgreSQL.
type Store struct {
	db  *gorm.DB
	loc *time.Location
}

var _ permission.Store = (*Store)(nil)

// NewStore wraps an open connection. Native timestamps are returned in loc.
func NewStore(db *gorm.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc}
}

func (s *Store) Insert(ctx context.Context, rec permission.NewRecord) (string, error) {
	row, err := fromNewRecord(rec)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(row.ID), 10), nil
}

func (s *Store) FetchAll(ctx context.Context, f permission.Filter) ([]permission.Record, error) {
	var rows []Permission
	if err := applyFilter(s.db.WithContext(ctx).Model(&Permission{}), f).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]permission.Record, 0, len(rows))
	for _, p := range rows {
		out = append(out, toRecord(p, s.loc))
	}
	return out, nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Permission{})
	return res.RowsAffected, res.Error
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyFilter(q *gorm.DB, f permission.Filter) *gorm.DB {
	if f.RollNumber != "" {
		q = q.Where("rollno ILIKE ?", "%"+escapeLike(f.RollNumber)+"%")
	}
	if f.ExactRollNumber != "" {
		q = q.Where("rollno = ?", f.ExactRollNumber)
	}
	if f.From != nil {
		q = q.Where("submitted_at >= ?", *f.From)
	}
	if f.Until != nil {
		q = q.Where("submitted_at < ?", *f.Until)
	}
	if f.NewestFirst {
		q = q.Order("submitted_at DESC NULLS LAST").Order("id DESC")
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toRecord(p Permission, loc *time.Location) permission.Record {
	rec := permission.Record{
		ID:         strconv.FormatUint(uint64(p.ID), 10),
		RollNumber: p.RollNumber,
		Branch:     p.Branch,
		Reason:     p.Reason,
		Email:      p.Email,
	}
	if p.SubmittedAt != nil && !p.SubmittedAt.IsZero() {
		rec.SubmittedAt = permission.TimeTimestamp(p.SubmittedAt.In(loc))
	} else {
		rec.SubmittedAt = rawFromJSON(p.SubmittedAtRaw)
	}
	return rec
}

// rawFromJSON decodes the legacy jsonb column. JSON strings are text
// timestamps; null or an empty column is absent; anything else is kept as
// an unsupported value.
func rawFromJSON(b datatypes.JSON) permission.RawTimestamp {
	if len(b) == 0 {
		return permission.AbsentTimestamp()
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return permission.OtherTimestamp(string(b))
	}
	return permission.RawFrom(v)
}

func fromNewRecord(rec permission.NewRecord) (Permission, error) {
	p := Permission{
		RollNumber: rec.RollNumber,
		Branch:     rec.Branch,
		Reason:     rec.Reason,
		Email:      rec.Email,
	}
	switch rec.SubmittedAt.Kind() {
	case permission.RawTime:
		t, _ := rec.SubmittedAt.Time()
		p.SubmittedAt = &t
	case permission.RawText, permission.RawOther:
		b, err := json.Marshal(rec.SubmittedAt.Value())
		if err != nil {
			return Permission{}, fmt.Errorf("encode submitted_at: %w", err)
		}
		p.SubmittedAtRaw = datatypes.JSON(b)
	}
	return p, nil
}
