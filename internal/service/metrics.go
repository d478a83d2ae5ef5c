package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ScreeningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_screenings_total",
			Help: "Screening decisions by outcome",
		},
		[]string{"outcome"},
	)
	LedgerCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_ledger_commits_total",
			Help: "Ledger commit attempts by result",
		},
		[]string{"result"},
	)
	OracleRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_oracle_requests_total",
			Help: "Challenge oracle calls by operation and result",
		},
		[]string{"op", "result"},
	)
	ChallengeAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guardian_challenge_attempts_total",
			Help: "Challenge answer submissions by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(ScreeningsTotal)
	prometheus.MustRegister(LedgerCommitsTotal)
	prometheus.MustRegister(OracleRequestsTotal)
	prometheus.MustRegister(ChallengeAttemptsTotal)
}
