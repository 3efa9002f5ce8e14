package logging

import (
	"context"
	"time"

	"github.com/spothole/spothole-api/internal/models"
	"gorm.io/gorm"
)

// Sink stores persisted log records.
type Sink interface {
	Insert(ctx context.Context, batch []models.SystemLog) error
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormSink writes to the system_logs table.
type GormSink struct {
	db *gorm.DB
}

func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

func (s *GormSink) Insert(ctx context.Context, batch []models.SystemLog) error {
	return s.db.WithContext(ctx).CreateInBatches(batch, batchSize).Error
}

func (s *GormSink) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
