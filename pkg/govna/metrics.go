package govna

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "govna_command_duration_seconds",
			Help:    "Duration of shell commands from write to framed response",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"command"},
	)
	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govna_validation_failures_total",
			Help: "Commands rejected before reaching the device",
		},
		[]string{"command"},
	)
	framingTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "govna_framing_timeouts_total",
			Help: "Responses returned partial because the end marker did not arrive",
		},
		[]string{"command"},
	)
	decodeSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "govna_decode_skipped_lines_total",
			Help: "Payload lines skipped by the numeric decoders",
		},
	)
)

// RegisterMetrics регистрирует метрики библиотеки. Повторная регистрация не ошибка.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{commandDuration, validationFailures, framingTimeouts, decodeSkipped} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
