package status

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shuttle-backend/internal/models"
)

// GormPersister сохраняет отслеживаемые сущности через gorm
type GormPersister struct {
	db *gorm.DB
}

func NewGormPersister(db *gorm.DB) *GormPersister {
	return &GormPersister{db: db}
}

func (p *GormPersister) Create(ctx context.Context, entity models.TrackedEntity) error {
	return p.db.WithContext(ctx).Create(entity).Error
}

// Save применяет поля статусной машины только при совпадении версии.
// Ноль затронутых строк означает параллельное изменение или удаление
// записи по TTL - возвращается ErrVersionConflict.
func (p *GormPersister) Save(ctx context.Context, entity models.TrackedEntity, prevVersion int) error {
	state := entity.TrackedState()

	result := p.db.WithContext(ctx).
		Model(entity).
		Where("version = ?", prevVersion).
		Updates(map[string]interface{}{
			"status":         state.Status,
			"status_history": state.StatusHistory,
			"expire_at":      state.ExpireAt,
			"version":        state.Version,
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка при сохранении статуса %s #%d: %w",
			entity.EntityKind(), entity.EntityID(), result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// GormExpirySource выбирает и удаляет истекшие записи через gorm
type GormExpirySource struct {
	db *gorm.DB
}

func NewGormExpirySource(db *gorm.DB) *GormExpirySource {
	return &GormExpirySource{db: db}
}

func (s *GormExpirySource) ListExpired(ctx context.Context, prototype models.TrackedEntity, now time.Time) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(prototype).
		Where("expire_at IS NOT NULL AND expire_at <= ?", now).
		Pluck("id", &ids).Error
	return ids, err
}

func (s *GormExpirySource) Load(ctx context.Context, entity models.TrackedEntity, id uint) error {
	return s.db.WithContext(ctx).First(entity, id).Error
}

func (s *GormExpirySource) DeleteExpired(ctx context.Context, prototype models.TrackedEntity, id uint, now time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("expire_at IS NOT NULL AND expire_at <= ?", now).
		Delete(prototype, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
