// Package storage persists client-side state: the bearer credential in Redis and an
// archive of received messages and orders in PostgreSQL.
package storage

import (
	"context"
	"fmt"

	"campusmart/client/internal/logger"
	"campusmart/client/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultListLimit = 50

// Archive is the local record of realtime events.
type Archive interface {
	SaveMessage(ctx context.Context, ownerID string, m models.Message) error
	SaveOrder(ctx context.Context, ownerID, event string, o models.Order) error
	ListMessages(ctx context.Context, ownerID string, limit int) ([]models.MessageRecord, error)
	ListOrders(ctx context.Context, ownerID string, limit int) ([]models.OrderRecord, error)
	Purge(ctx context.Context, ownerID string) (int64, error)
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
	}
}

// Migrate creates the archive tables.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(&models.MessageRecord{}, &models.OrderRecord{})
}

// SaveMessage archives a received message. A message id already archived is ignored.
func (s *Service) SaveMessage(ctx context.Context, ownerID string, m models.Message) error {
	rec := models.NewMessageRecord(ownerID, m)
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(rec).Error
	if err != nil {
		logger.Log.Error("failed to archive message", zap.String("message_id", m.ID), zap.Error(err))
		return fmt.Errorf("save message %s: %w", m.ID, err)
	}
	return nil
}

// SaveOrder archives one order event. Every event gets its own record.
func (s *Service) SaveOrder(ctx context.Context, ownerID, event string, o models.Order) error {
	if err := s.DB.WithContext(ctx).Create(models.NewOrderRecord(ownerID, event, o)).Error; err != nil {
		logger.Log.Error("failed to archive order", zap.String("order_id", o.ID), zap.Error(err))
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return nil
}

// ListMessages returns the newest archived messages; an empty ownerID lists all owners.
func (s *Service) ListMessages(ctx context.Context, ownerID string, limit int) ([]models.MessageRecord, error) {
	var recs []models.MessageRecord
	if err := s.ownerScope(ctx, ownerID, limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return recs, nil
}

// ListOrders returns the newest archived order events.
func (s *Service) ListOrders(ctx context.Context, ownerID string, limit int) ([]models.OrderRecord, error) {
	var recs []models.OrderRecord
	if err := s.ownerScope(ctx, ownerID, limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return recs, nil
}

func (s *Service) ownerScope(ctx context.Context, ownerID string, limit int) *gorm.DB {
	if limit <= 0 {
		limit = defaultListLimit
	}
	q := s.DB.WithContext(ctx).Order("created_at desc").Limit(limit)
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	return q
}

// Purge permanently removes everything archived for ownerID, or for every owner when
// ownerID is empty, and returns the row count.
func (s *Service) Purge(ctx context.Context, ownerID string) (int64, error) {
	var removed int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := purgeScope(tx.Unscoped(), ownerID).Delete(&models.MessageRecord{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected

		res = purgeScope(tx, ownerID).Delete(&models.OrderRecord{})
		if res.Error != nil {
			return res.Error
		}
		removed += res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge archive for %q: %w", ownerID, err)
	}
	return removed, nil
}

// purgeScope limits a delete to ownerID; an empty ownerID allows the table-wide delete
// gorm otherwise refuses.
func purgeScope(tx *gorm.DB, ownerID string) *gorm.DB {
	if ownerID == "" {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}
	return tx.Where("owner_id = ?", ownerID)
}
