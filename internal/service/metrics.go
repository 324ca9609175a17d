package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommissionEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_commission_entries_total",
			Help: "Commission entries written, by source kind and level",
		},
		[]string{"source", "level"},
	)

	DistributionReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_distribution_replays_total",
			Help: "Distributions that returned an already stored result",
		},
		[]string{"source"},
	)

	PurchasesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_purchases_total",
			Help: "Purchases recorded, by currency",
		},
		[]string{"currency"},
	)

	StakeTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_stake_transitions_total",
			Help: "Stake lifecycle transitions, by resulting status",
		},
		[]string{"status"},
	)
)
