package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/govna-shell/pkg/govna"
)

// publisher - часть *nats.Conn, нужная для отправки сканов.
type publisher interface {
	Publish(subject string, data []byte) error
}

// ScanMessage - одно сканирование в формате сообщения шины.
type ScanMessage struct {
	Port        string       `json:"port"`
	Timestamp   time.Time    `json:"timestamp"`
	Frequencies []float64    `json:"frequencies"`
	S11         [][2]float64 `json:"s11"`
	S21         [][2]float64 `json:"s21,omitempty"`
	VSWR        []float64    `json:"vswr"`
}

func newScanMessage(port string, data govna.VNAData) ScanMessage {
	return ScanMessage{
		Port:        port,
		Timestamp:   time.Now().UTC(),
		Frequencies: data.Frequencies,
		S11:         pairs(data.S11),
		S21:         pairs(data.S21),
		VSWR:        data.CalculateVSWR(),
	}
}

func pairs(vs []complex128) [][2]float64 {
	if len(vs) == 0 {
		return nil
	}
	out := make([][2]float64, len(vs))
	for i, v := range vs {
		out[i] = [2]float64{real(v), imag(v)}
	}
	return out
}

// subjectFor строит тему NATS для порта: "/dev/ttyACM0" -> "<prefix>.dev_ttyACM0".
func subjectFor(prefix, port string) string {
	token := strings.Trim(port, "/")
	token = strings.NewReplacer("/", "_", ".", "_", " ", "_", "*", "_", ">", "_").Replace(token)
	if token == "" {
		token = "unknown"
	}
	return prefix + "." + token
}

// Acquirer периодически сканирует один порт и публикует результат.
type Acquirer struct {
	pool     *govna.VNAPool
	pub      publisher
	port     string
	subject  string
	interval time.Duration
	sweep    govna.SweepConfig
	log      zerolog.Logger
}

func (a *Acquirer) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	a.log.Info().Str("port", a.port).Str("subject", a.subject).Dur("interval", a.interval).Msg("периодическое сканирование запущено")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.acquire(); err != nil {
				a.log.Error().Err(err).Str("port", a.port).Msg("ошибка периодического сканирования")
			}
		}
	}
}

func (a *Acquirer) acquire() error {
	vna, err := a.pool.Get(a.port)
	if err != nil {
		return err
	}
	if vna.Sweep() != a.sweep {
		if err := vna.SetSweep(a.sweep); err != nil {
			return a.drop(err)
		}
	}
	data, err := vna.GetData()
	if err != nil {
		return a.drop(err)
	}
	payload, err := json.Marshal(newScanMessage(a.port, data))
	if err != nil {
		return err
	}
	return a.pub.Publish(a.subject, payload)
}

// drop освобождает порт после потери связи, чтобы следующий тик открыл его заново.
func (a *Acquirer) drop(err error) error {
	if isConnectionLost(err) {
		a.pool.Release(a.port)
	}
	return err
}
