package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/momentics/govna-shell/pkg/govna"
)

var (
	scanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "govna_scan_duration_seconds",
			Help: "Duration of VNA scan operations",
		},
		[]string{"port"},
	)
)

func init() {
	prometheus.MustRegister(scanDuration)
}

// defaultSweep используется, если диапазон не задан в запросе.
var defaultSweep = govna.SweepConfig{Start: 1e6, Stop: 900e6, Points: 101}

type api struct {
	pool *govna.VNAPool
	log  zerolog.Logger
}

func (a *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/scan", a.scanHandler)
	mux.HandleFunc("/api/v1/capture", a.captureHandler)
	mux.HandleFunc("/api/v1/info", a.infoHandler)
}

func sweepFromQuery(r *http.Request) (govna.SweepConfig, error) {
	cfg := defaultSweep
	q := r.URL.Query()
	for key, dst := range map[string]*float64{"start": &cfg.Start, "stop": &cfg.Stop} {
		if v := q.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return cfg, fmt.Errorf("параметр %q: %w", key, err)
			}
			*dst = f
		}
	}
	if v := q.Get("points"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("параметр \"points\": %w", err)
		}
		cfg.Points = n
	}
	return cfg, nil
}

// device возвращает владельца порта из запроса либо пишет ошибку в ответ.
func (a *api) device(w http.ResponseWriter, r *http.Request) (string, *govna.VNA, bool) {
	port := r.URL.Query().Get("port")
	if port == "" {
		http.Error(w, "Параметр 'port' обязателен", http.StatusBadRequest)
		return "", nil, false
	}
	vna, err := a.pool.Get(port)
	if err != nil {
		a.fail(w, port, "Ошибка устройства", err)
		return "", nil, false
	}
	return port, vna, true
}

// fail переводит ошибку библиотеки в код ответа. Потерянное устройство
// удаляется из пула, следующий запрос откроет порт заново.
func (a *api) fail(w http.ResponseWriter, port, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, govna.ErrValidation):
		status = http.StatusBadRequest
	case isConnectionLost(err):
		status = http.StatusServiceUnavailable
		if rerr := a.pool.Release(port); rerr != nil {
			a.log.Warn().Err(rerr).Str("port", port).Msg("ошибка закрытия порта")
		}
	case errors.Is(err, govna.ErrFramingTimeout):
		status = http.StatusGatewayTimeout
	}
	a.log.Error().Err(err).Str("port", port).Int("status", status).Msg(msg)
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), status)
}

func (a *api) scanHandler(w http.ResponseWriter, r *http.Request) {
	sweepCfg, err := sweepFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	port, vna, ok := a.device(w, r)
	if !ok {
		return
	}

	if err := vna.SetSweep(sweepCfg); err != nil {
		a.fail(w, port, "Ошибка установки параметров", err)
		return
	}

	start := time.Now()
	data, err := vna.GetData()
	if err != nil {
		a.fail(w, port, "Ошибка сканирования", err)
		return
	}
	scanDuration.WithLabelValues(port).Observe(time.Since(start).Seconds())

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(data.ToTouchstone()))
}

func (a *api) captureHandler(w http.ResponseWriter, r *http.Request) {
	port, vna, ok := a.device(w, r)
	if !ok {
		return
	}
	img, err := vna.Capture()
	if err != nil {
		a.fail(w, port, "Ошибка снимка экрана", err)
		return
	}
	var buf bytes.Buffer
	if err := img.WritePNG(&buf); err != nil {
		a.fail(w, port, "Ошибка кодирования PNG", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (a *api) infoHandler(w http.ResponseWriter, r *http.Request) {
	port, vna, ok := a.device(w, r)
	if !ok {
		return
	}
	var resp govna.Response
	err := vna.Exec(func(s *govna.Session) error {
		var err error
		resp, err = s.Info()
		return err
	})
	if err != nil {
		a.fail(w, port, "Ошибка запроса info", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(resp.Payload)
}

func isConnectionLost(err error) bool {
	return errors.Is(err, govna.ErrConnection)
}
