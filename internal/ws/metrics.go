package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "earnings_feed_clients",
		Help: "Open earnings feed connections",
	})
	FeedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earnings_feed_messages_total",
		Help: "Commission messages queued to feed clients",
	})
	FeedDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "earnings_feed_dropped_total",
		Help: "Commission messages dropped because a client was too slow",
	})
)
