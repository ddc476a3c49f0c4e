// Package metrics содержит Prometheus-метрики кофемашины.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Исходы расчёта заказа.
const (
	// OutcomeSettled означает оплату с баланса пользователя.
	OutcomeSettled = "settled"
	// OutcomeAnonymous означает заказ без пользователя.
	OutcomeAnonymous = "anonymous"
	// OutcomeInsufficient означает отказ из-за нехватки баланса.
	OutcomeInsufficient = "insufficient_balance"
	// OutcomeMissingRef означает, что кофе или пользователь не найдены.
	OutcomeMissingRef = "missing_reference"
	// OutcomeFailed означает ошибку хранилища.
	OutcomeFailed = "failed"
)

var (
	// HTTPRequestsTotal считает HTTP-запросы по методу, маршруту и статусу.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffee_machine_http_requests_total",
			Help: "Количество обработанных HTTP-запросов",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration измеряет время обработки HTTP-запросов.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coffee_machine_http_request_duration_seconds",
			Help:    "Время обработки HTTP-запроса в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// OrdersSettled считает заказы по исходу расчёта.
	OrdersSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffee_machine_orders_total",
			Help: "Количество заказов по исходу расчёта",
		},
		[]string{"outcome"},
	)

	// BillsDispensed считает купюры сдачи по номиналам.
	BillsDispensed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffee_machine_change_bills_total",
			Help: "Количество купюр, рассчитанных в качестве сдачи",
		},
		[]string{"bill"},
	)

	// BalanceTopUps считает пополнения баланса.
	BalanceTopUps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "coffee_machine_balance_top_ups_total",
			Help: "Количество пополнений баланса купюрами",
		},
	)
)

// RecordHTTPRequest учитывает обработанный запрос.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOrder учитывает исход расчёта заказа.
func RecordOrder(outcome string) {
	OrdersSettled.WithLabelValues(outcome).Inc()
}

// RecordBills учитывает купюры одного номинала в сдаче.
func RecordBills(bill int64, count int64) {
	if count <= 0 {
		return
	}
	BillsDispensed.WithLabelValues(strconv.FormatInt(bill, 10)).Add(float64(count))
}

// RecordTopUp учитывает пополнение баланса.
func RecordTopUp() {
	BalanceTopUps.Inc()
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
