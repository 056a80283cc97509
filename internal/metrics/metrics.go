package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mobypark_sessions_started_total",
		Help: "Tổng số phiên đỗ xe đã bắt đầu.",
	})
	SessionsStopped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mobypark_sessions_stopped_total",
		Help: "Tổng số phiên đỗ xe đã kết thúc.",
	})
	PaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mobypark_payments_created_total",
		Help: "Tổng số payment đã tạo qua đối soát.",
	})
)
