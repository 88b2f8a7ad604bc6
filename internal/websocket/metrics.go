package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// connectionsGauge - текущее количество открытых соединений по namespace
	connectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Текущее количество WebSocket соединений",
		},
		[]string{"namespace"},
	)

	// emitsTotal - количество доставленных событий по namespace
	emitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_emits_total",
			Help: "Количество событий, доставленных в WebSocket соединения",
		},
		[]string{"namespace"},
	)
)
