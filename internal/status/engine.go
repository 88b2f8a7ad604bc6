package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shuttle-backend/internal/models"
)

var (
	// ErrInvalidTransition возвращается при недопустимом переходе статуса
	ErrInvalidTransition = errors.New("недопустимый переход статуса")
	// ErrVersionConflict возвращается, когда сущность была изменена параллельно
	ErrVersionConflict = errors.New("конфликт версий при сохранении статуса")
	// ErrUnknownKind возвращается для сущности без зарегистрированных правил
	ErrUnknownKind = errors.New("неизвестный тип отслеживаемой сущности")
)

// Persister сохраняет отслеживаемые сущности в хранилище документов.
// Save обязан применять изменения только при совпадении prevVersion
// (оптимистичная блокировка).
type Persister interface {
	Create(ctx context.Context, entity models.TrackedEntity) error
	Save(ctx context.Context, entity models.TrackedEntity, prevVersion int) error
}

// Rules описывает статусную машину одного типа сущности
type Rules struct {
	// Transitions - таблица допустимых переходов
	Transitions map[models.Status][]models.Status
	// Confirm - статус подтверждения: при входе в него expire_at сбрасывается
	Confirm models.Status
	// Grace - окно ожидания подтверждения для новых сущностей
	Grace time.Duration
}

// Allowed проверяет переход по таблице
func (r Rules) Allowed(from, to models.Status) bool {
	for _, s := range r.Transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal сообщает, является ли статус конечным (нет исходящих переходов)
func (r Rules) Terminal(s models.Status) bool {
	return len(r.Transitions[s]) == 0
}

// Engine - общий движок переходов для Booking, Trip и SharedItinerary.
// Все изменения статуса проходят только через Create/Transition, напрямую
// поля Tracked никто не трогает. Переходы по одной сущности сериализуются
// мьютексом по ключу kind:id, плюс Persister проверяет версию - этого
// достаточно и внутри процесса, и между инстансами за балансировщиком.
type Engine struct {
	persister Persister
	rules     map[string]Rules

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// NewEngine создает движок с заданными правилами по типам сущностей
func NewEngine(persister Persister, rules map[string]Rules) *Engine {
	return &Engine{
		persister: persister,
		rules:     rules,
		locks:     make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

func (e *Engine) entityLock(entity models.TrackedEntity) *sync.Mutex {
	key := fmt.Sprintf("%s:%d", entity.EntityKind(), entity.EntityID())

	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[key] = lock
	}
	return lock
}

// Create инициализирует статусную машину новой сущности и сохраняет ее.
// Если начальный статус не является подтверждающим и не конечный,
// выставляется срок автоистечения now + Grace; при создании сразу
// в подтверждающем или конечном статусе expire_at остается пустым.
func (e *Engine) Create(ctx context.Context, entity models.TrackedEntity, initial models.Status, reason string) error {
	rules, ok := e.rules[entity.EntityKind()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, entity.EntityKind())
	}

	now := e.now()
	state := entity.TrackedState()
	state.Status = initial
	state.StatusHistory = models.StatusHistory{{Status: initial, ChangedAt: now, Reason: reason}}
	state.Version = 0

	if initial != rules.Confirm && !rules.Terminal(initial) {
		deadline := now.Add(rules.Grace)
		state.ExpireAt = &deadline
	} else {
		state.ExpireAt = nil
	}

	if err := e.persister.Create(ctx, entity); err != nil {
		return fmt.Errorf("ошибка при создании сущности %s: %w", entity.EntityKind(), err)
	}

	transitionsTotal.WithLabelValues(entity.EntityKind(), string(initial)).Inc()
	return nil
}

// Transition переводит сущность в новый статус.
// Повторный перевод в текущий статус поглощается идемпотентно (история
// не дублируется, сохранение не выполняется). Недопустимый переход
// возвращает ErrInvalidTransition, параллельное изменение - ErrVersionConflict.
func (e *Engine) Transition(ctx context.Context, entity models.TrackedEntity, newStatus models.Status, reason string) error {
	rules, ok := e.rules[entity.EntityKind()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, entity.EntityKind())
	}

	lock := e.entityLock(entity)
	lock.Lock()
	defer lock.Unlock()

	state := entity.TrackedState()

	// Идемпотентность: дубликат сохранения того же статуса - не ошибка и не запись
	if last := state.StatusHistory.Last(); newStatus == state.Status && last != nil && last.Status == newStatus {
		return nil
	}

	if !rules.Allowed(state.Status, newStatus) {
		return fmt.Errorf("%w: %s -> %s (%s)", ErrInvalidTransition, state.Status, newStatus, entity.EntityKind())
	}

	// Снимок для отката при неудачном сохранении
	prevStatus := state.Status
	prevHistory := state.StatusHistory
	prevExpireAt := state.ExpireAt
	prevVersion := state.Version

	state.Status = newStatus
	state.StatusHistory = append(state.StatusHistory, models.StatusEvent{
		Status:    newStatus,
		ChangedAt: e.now(),
		Reason:    reason,
	})
	if newStatus == rules.Confirm {
		state.ExpireAt = nil
	}
	state.Version = prevVersion + 1

	if err := e.persister.Save(ctx, entity, prevVersion); err != nil {
		state.Status = prevStatus
		state.StatusHistory = prevHistory
		state.ExpireAt = prevExpireAt
		state.Version = prevVersion
		return err
	}

	transitionsTotal.WithLabelValues(entity.EntityKind(), string(newStatus)).Inc()
	return nil
}
