package govna

import (
	"context"
	"errors"
	"fmt"
	"math/cmplx"
	"strings"
	"sync"
	"time"
)

// VNA - единственный владелец сессии. Все обращения к устройству проходят
// через мьютекс, поэтому VNA можно использовать из нескольких горутин.
type VNA struct {
	session     *Session
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	sweep       SweepConfig
	calibration *CalibrationProfile
}

func NewVNA(session *Session) *VNA {
	ctx, cancel := context.WithCancel(context.Background())
	return &VNA{session: session, ctx: ctx, cancel: cancel}
}

// SweepConfig - параметры сканирования, используемые GetData.
type SweepConfig struct {
	Start, Stop float64
	Points      int
}

func (c SweepConfig) validate(maxPoints int) error {
	if c.Start < 0 || c.Start >= c.Stop || c.Points <= 0 {
		return invalid("sweep", "некорректные параметры сканирования %+v", c)
	}
	if c.Points > maxPoints {
		return invalid("sweep", "число точек %d превышает предел устройства %d", c.Points, maxPoints)
	}
	return nil
}

// VNAData - каналы одного сканирования.
type VNAData struct {
	Frequencies []float64
	S11, S21    []complex128
}

// SetSweep запоминает параметры и передает их устройству командой sweep.
func (v *VNA) SetSweep(config SweepConfig) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := config.validate(v.session.cfg.Device.MaxPoints); err != nil {
		return err
	}
	if _, err := v.session.RunSweep(int64(config.Start), int64(config.Stop), config.Points); err != nil {
		return err
	}
	v.sweep = config
	return nil
}

// Sweep возвращает текущие параметры сканирования.
func (v *VNA) Sweep() SweepConfig {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sweep
}

// GetData сканирует текущий диапазон (частоты, S11, S21) и применяет
// калибровку, если она получена.
func (v *VNA) GetData() (VNAData, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	data, err := v.scanLocked(v.sweep)
	if err != nil {
		return data, err
	}
	if v.calibration != nil {
		return v.calibration.apply(data)
	}
	return data, nil
}

func (v *VNA) scanLocked(cfg SweepConfig) (VNAData, error) {
	if cfg.Points == 0 {
		return VNAData{}, errors.New("параметры сканирования не заданы")
	}
	data, skipped, err := v.session.ScanData(int64(cfg.Start), int64(cfg.Stop), cfg.Points, outmaskAll)
	if len(skipped) > 0 {
		v.session.log.Debug().Int("skipped", len(skipped)).Msg("пропущены строки данных")
	}
	return data, err
}

// Capture получает снимок экрана.
func (v *VNA) Capture() (*ScreenCapture, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.CaptureScreen()
}

// Exec выполняет fn с монопольным доступом к сессии.
func (v *VNA) Exec(fn func(s *Session) error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(v.session)
}

// Calibration возвращает активный калибровочный профиль.
func (v *VNA) Calibration() *CalibrationProfile {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calibration
}

func (v *VNA) Close() error {
	v.cancel()
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.session.Close()
}

// ToTouchstone экспортирует данные в формате Touchstone (S2P, если есть S21).
func (d *VNAData) ToTouchstone() string {
	var sb strings.Builder
	sb.WriteString("! GoVNA Data Export\n")
	sb.WriteString("! Date: " + time.Now().Format(time.RFC3339) + "\n")
	sb.WriteString("# Hz S RI R 50\n")
	for i := range d.Frequencies {
		if i >= len(d.S11) {
			break
		}
		if i < len(d.S21) {
			sb.WriteString(fmt.Sprintf("%d %.6f %.6f %.6f %.6f\n",
				int64(d.Frequencies[i]), real(d.S11[i]), imag(d.S11[i]),
				real(d.S21[i]), imag(d.S21[i])))
			continue
		}
		sb.WriteString(fmt.Sprintf("%d %.6f %.6f\n",
			int64(d.Frequencies[i]), real(d.S11[i]), imag(d.S11[i])))
	}
	return sb.String()
}

func (d *VNAData) CalculateVSWR() []float64 {
	vswr := make([]float64, len(d.S11))
	for i, s11 := range d.S11 {
		gamma := cmplx.Abs(s11)
		if gamma >= 1.0 {
			vswr[i] = 9999.0 // Практически бесконечное значение
		} else {
			vswr[i] = (1 + gamma) / (1 - gamma)
		}
	}
	return vswr
}
