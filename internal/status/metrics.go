package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsTotal - количество выполненных переходов статусов
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Количество переходов статусов по типу сущности и новому статусу",
		},
		[]string{"kind", "status"},
	)

	// sweepsTotal - количество проходов сборщика истекших записей
	sweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "status_expiry_sweeps_total",
			Help: "Количество проходов сборщика истекших записей",
		},
	)

	// expiredTotal - количество удаленных по TTL записей
	expiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_expired_entities_total",
			Help: "Количество записей, удаленных по истечении expire_at",
		},
		[]string{"kind"},
	)
)
