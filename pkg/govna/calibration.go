package govna

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// CalibrationStandard - эталон однопортовой калибровки.
type CalibrationStandard string

const (
	CalibrationStandardOpen  CalibrationStandard = "open"
	CalibrationStandardShort CalibrationStandard = "short"
	CalibrationStandardLoad  CalibrationStandard = "load"
)

// SOLSteps - стандартная последовательность подключения эталонов.
var SOLSteps = []CalibrationStandard{
	CalibrationStandardOpen,
	CalibrationStandardShort,
	CalibrationStandardLoad,
}

// CalibrationPrompt вызывается перед измерением каждого эталона, чтобы
// оператор успел его подключить.
type CalibrationPrompt func(ctx context.Context, standard CalibrationStandard) error

// CalibrationPlan - диапазон и порядок эталонов.
type CalibrationPlan struct {
	Name  string
	Sweep SweepConfig
	Steps []CalibrationStandard
}

// ErrorTerms - коэффициенты модели ошибок одного порта по точкам.
type ErrorTerms struct {
	Directivity        []complex128
	SourceMatch        []complex128
	ReflectionTracking []complex128
}

// CalibrationProfile - результат калибровки SOL, применяемый к S11 на хосте.
type CalibrationProfile struct {
	Name        string
	CreatedAt   time.Time
	Sweep       SweepConfig
	Frequencies []float64
	Standards   map[CalibrationStandard][]complex128
	Terms       ErrorTerms
}

// AcquireCalibration измеряет эталоны плана и рассчитывает коэффициенты.
// При успехе профиль становится активным и применяется в GetData.
func (v *VNA) AcquireCalibration(ctx context.Context, plan CalibrationPlan, prompt CalibrationPrompt) (*CalibrationProfile, error) {
	if ctx == nil {
		ctx = v.ctx
	}
	steps := plan.Steps
	if len(steps) == 0 {
		steps = SOLSteps
	}
	if err := plan.Sweep.validate(v.session.cfg.Device.MaxPoints); err != nil {
		return nil, fmt.Errorf("план калибровки: %w", err)
	}

	profile := &CalibrationProfile{
		Name:      plan.Name,
		CreatedAt: time.Now(),
		Sweep:     plan.Sweep,
		Standards: make(map[CalibrationStandard][]complex128, len(steps)),
	}

	for _, std := range steps {
		if prompt != nil {
			if err := prompt(ctx, std); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		v.mu.Lock()
		res, err := v.session.ScanS11(int64(plan.Sweep.Start), int64(plan.Sweep.Stop), plan.Sweep.Points)
		v.mu.Unlock()
		if err != nil {
			return nil, fmt.Errorf("ошибка получения данных для эталона %s: %w", std, err)
		}
		if res.Len() != plan.Sweep.Points {
			return nil, fmt.Errorf("эталон %s: получено %d точек из %d", std, res.Len(), plan.Sweep.Points)
		}
		if profile.Frequencies == nil {
			profile.Frequencies = res.Frequencies()
		}
		profile.Standards[std] = res.Values()
	}

	if err := profile.solve(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.calibration = profile
	v.mu.Unlock()
	v.session.log.Info().Str("name", plan.Name).Int("points", len(profile.Frequencies)).Msg("калибровка SOL получена")
	return profile, nil
}

// ClearCalibration отключает коррекцию на хосте.
func (v *VNA) ClearCalibration() {
	v.mu.Lock()
	v.calibration = nil
	v.mu.Unlock()
}

// solve рассчитывает коэффициенты по идеальным эталонам open=+1, short=-1, load=0.
func (p *CalibrationProfile) solve() error {
	open, okOpen := p.Standards[CalibrationStandardOpen]
	short, okShort := p.Standards[CalibrationStandardShort]
	load, okLoad := p.Standards[CalibrationStandardLoad]
	if !(okOpen && okShort && okLoad) {
		return errors.New("для расчета коэффициентов SOL требуется набор open/short/load")
	}
	n := len(load)
	if n == 0 || len(open) != n || len(short) != n {
		return errors.New("размеры измерений эталонов не совпадают")
	}

	p.Terms = ErrorTerms{
		Directivity:        make([]complex128, n),
		SourceMatch:        make([]complex128, n),
		ReflectionTracking: make([]complex128, n),
	}
	for i := 0; i < n; i++ {
		e00 := load[i]
		lo := open[i] - e00
		ls := short[i] - e00
		if lo-ls == 0 {
			return fmt.Errorf("деление на ноль при расчете коэффициентов на частоте %.3f Гц", p.Frequencies[i])
		}
		e11 := (lo + ls) / (lo - ls)
		p.Terms.Directivity[i] = e00
		p.Terms.SourceMatch[i] = e11
		p.Terms.ReflectionTracking[i] = lo * (1 - e11)
	}
	return nil
}

// Correct применяет коррекцию к одному измерению S11 в точке i.
func (p *CalibrationProfile) Correct(i int, measured complex128) (complex128, error) {
	e00 := p.Terms.Directivity[i]
	e11 := p.Terms.SourceMatch[i]
	tr := p.Terms.ReflectionTracking[i]
	d := measured - e00
	den := tr + e11*d
	if den == 0 {
		return 0, fmt.Errorf("деление на ноль при применении калибровки в точке %d", i)
	}
	return d / den, nil
}

func (p *CalibrationProfile) apply(data VNAData) (VNAData, error) {
	if len(data.S11) != len(p.Frequencies) {
		return VNAData{}, errors.New("размер частотной сетки данных не совпадает с калибровкой")
	}
	for i, f := range data.Frequencies {
		if i < len(p.Frequencies) && math.Abs(f-p.Frequencies[i]) > freqTolerance(f) {
			return VNAData{}, errors.New("частоты данных не совпадают с калибровкой")
		}
	}
	out := VNAData{
		Frequencies: append([]float64(nil), data.Frequencies...),
		S11:         make([]complex128, len(data.S11)),
		S21:         append([]complex128(nil), data.S21...),
	}
	for i, m := range data.S11 {
		c, err := p.Correct(i, m)
		if err != nil {
			return VNAData{}, err
		}
		out.S11[i] = c
	}
	return out, nil
}

// freqTolerance - допуск сравнения частот: ось устройства округляет шаг до герца.
func freqTolerance(f float64) float64 {
	return math.Max(1, math.Abs(f)*1e-6)
}
