package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yodateam/faceit-backend/internal/repository"
)

// stateRecord backs the coordination store. Expired rows are filtered on
// read and lazily removed; there is no background sweeper.
type stateRecord struct {
	Key       string         `gorm:"primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	ExpiresAt *time.Time     `gorm:"index"`
	UpdatedAt time.Time
}

func (stateRecord) TableName() string {
	return "state_records"
}

type stateStore struct {
	db *gorm.DB
}

func NewStateStore(db *gorm.DB) *stateStore {
	return &stateStore{db: db}
}

func (s *stateStore) Get(ctx context.Context, key string, out any) error {
	var rec stateRecord
	err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrKeyNotFound
	}
	if err != nil {
		return err
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		s.db.WithContext(ctx).Delete(&stateRecord{}, "key = ?", key)
		return repository.ErrKeyNotFound
	}
	return json.Unmarshal(rec.Value, out)
}

func (s *stateStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	rec := stateRecord{Key: key, Value: raw}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		rec.ExpiresAt = &exp
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).
		Create(&rec).Error
}

func (s *stateStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&stateRecord{}, "key = ?", key).Error
}

func (s *stateStore) List(ctx context.Context, prefix string, out any) error {
	var recs []stateRecord
	err := s.db.WithContext(ctx).
		Where("key LIKE ?", prefix+"%").
		Order("key").
		Find(&recs).Error
	if err != nil {
		return err
	}
	now := time.Now()
	var buf bytes.Buffer
	buf.WriteByte('[')
	first := true
	for _, rec := range recs {
		if rec.ExpiresAt != nil && now.After(*rec.ExpiresAt) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(rec.Value)
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), out)
}
