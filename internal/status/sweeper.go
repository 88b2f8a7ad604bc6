package status

import (
	"context"
	"log"
	"time"

	"shuttle-backend/internal/models"
)

// ExpiryTarget описывает одну таблицу, обслуживаемую сборщиком истекших записей
type ExpiryTarget struct {
	Kind string
	// NewEntity возвращает пустую модель для запросов хранилища
	NewEntity func() models.TrackedEntity
	// OnExpire вызывается после удаления записи (освобождение мест и т.п.).
	// Может быть nil.
	OnExpire func(ctx context.Context, entity models.TrackedEntity)
}

// ExpirySource выбирает и удаляет истекшие записи одной таблицы.
// Реализуется GormExpirySource.
type ExpirySource interface {
	// ListExpired возвращает идентификаторы записей, у которых
	// expire_at выставлен и прошел
	ListExpired(ctx context.Context, prototype models.TrackedEntity, now time.Time) ([]uint, error)
	// Load загружает запись по идентификатору
	Load(ctx context.Context, entity models.TrackedEntity, id uint) error
	// DeleteExpired удаляет запись, повторно проверяя expire_at.
	// false означает, что запись успели подтвердить или удалить параллельно.
	DeleteExpired(ctx context.Context, prototype models.TrackedEntity, id uint, now time.Time) (bool, error)
}

// Sweeper эмулирует TTL-индекс хранилища документов: периодически жестко
// удаляет записи, у которых expire_at выставлен и прошел. Удаление - это
// именно удаление, а не перевод в статус EXPIRED: history удаленной записи
// не получает конечной отметки (поведение исходной системы, сохранено
// осознанно - см. DESIGN.md).
type Sweeper struct {
	source   ExpirySource
	interval time.Duration
	targets  []ExpiryTarget
	now      func() time.Time
}

func NewSweeper(source ExpirySource, interval time.Duration, targets ...ExpiryTarget) *Sweeper {
	return &Sweeper{
		source:   source,
		interval: interval,
		targets:  targets,
		now:      time.Now,
	}
}

// Run запускает цикл уборки до отмены контекста
func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("Запуск сборщика истекших записей, интервал %s", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Сборщик истекших записей остановлен")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce выполняет один проход по всем целям и возвращает число удаленных записей
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	deleted := 0
	now := s.now()

	for _, target := range s.targets {
		ids, err := s.source.ListExpired(ctx, target.NewEntity(), now)
		if err != nil {
			log.Printf("Сборщик: ошибка выборки истекших %s: %v", target.Kind, err)
			continue
		}

		for _, id := range ids {
			entity := target.NewEntity()
			if err := s.source.Load(ctx, entity, id); err != nil {
				continue
			}

			// Условное удаление: параллельное подтверждение успевает
			// сбросить expire_at, тогда запись не трогаем
			removed, err := s.source.DeleteExpired(ctx, target.NewEntity(), id, now)
			if err != nil {
				log.Printf("Сборщик: ошибка удаления %s #%d: %v", target.Kind, id, err)
				continue
			}
			if !removed {
				continue
			}

			log.Printf("Сборщик: %s #%d истек и удален", target.Kind, id)
			expiredTotal.WithLabelValues(target.Kind).Inc()
			deleted++

			if target.OnExpire != nil {
				target.OnExpire(ctx, entity)
			}
		}
	}

	sweepsTotal.Inc()
	return deleted
}
