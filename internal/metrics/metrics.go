package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "club_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SessionsOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_sessions_opened_total",
			Help: "Total number of table sessions opened",
		},
		[]string{"game_type"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_settlements_total",
			Help: "Total number of session settlements",
		},
		[]string{"mode", "method"},
	)

	SalesAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_sales_amount_total",
			Help: "Accumulated sale amounts by payment method",
		},
		[]string{"method"},
	)

	InsufficientStockTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "club_insufficient_stock_total",
			Help: "Total number of orders rejected for lack of stock",
		},
	)

	ShiftCashDifference = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "club_shift_cash_difference",
			Help: "Declared minus system cash of the last closed shift",
		},
	)

	ReportsDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "club_reports_delivered_total",
			Help: "Total number of shift reports handed to the notifier",
		},
		[]string{"kind", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordSessionOpened(gameType string) {
	SessionsOpenedTotal.WithLabelValues(gameType).Inc()
}

func RecordSettlement(mode, method string) {
	SettlementsTotal.WithLabelValues(mode, method).Inc()
}

func RecordSale(method string, amount int64) {
	SalesAmountTotal.WithLabelValues(method).Add(float64(amount))
}

func RecordInsufficientStock() {
	InsufficientStockTotal.Inc()
}

func RecordShiftDifference(diff int64) {
	ShiftCashDifference.Set(float64(diff))
}

func RecordReport(kind, status string) {
	ReportsDeliveredTotal.WithLabelValues(kind, status).Inc()
}
