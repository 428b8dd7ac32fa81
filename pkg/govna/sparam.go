package govna

import (
	"bytes"
	"fmt"
	"math"
	"math/cmplx"
	"strconv"
	"strings"
)

// Прошивка иногда выводит вместо числа заглушку "-:.0"; до разбора она
// заменяется отрицательным значением.
var (
	errorToken       = []byte("-:.0")
	errorReplacement = []byte("-10.0")
)

// SweepPoint - одна точка сканирования.
type SweepPoint struct {
	Frequency float64
	S         complex128
}

// ScanResult - разобранные точки одного канала. Длина равна числу реально
// декодированных пар и может быть меньше запрошенной.
type ScanResult struct {
	Points      []SweepPoint
	MagnitudeDB []float64
	PhaseDeg    []float64
	// Requested - запрошенное число точек.
	Requested int
	// Skipped - строки, не прошедшие разбор.
	Skipped []DecodeError
}

// Len возвращает число точек.
func (r *ScanResult) Len() int { return len(r.Points) }

// Frequencies возвращает ось частот.
func (r *ScanResult) Frequencies() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Frequency
	}
	return out
}

// Values возвращает комплексные значения S.
func (r *ScanResult) Values() []complex128 {
	out := make([]complex128, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.S
	}
	return out
}

// AsS11 представляет результат как VNAData с каналом S11.
func (r *ScanResult) AsS11() VNAData {
	return VNAData{Frequencies: r.Frequencies(), S11: r.Values()}
}

// Linspace возвращает n равномерно распределенных значений от start до stop
// включительно.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// MagnitudeDB возвращает 20*log10(|s|).
func MagnitudeDB(s complex128) float64 {
	return 20 * math.Log10(math.Sqrt(real(s)*real(s)+imag(s)*imag(s)))
}

// PhaseDeg возвращает фазу в градусах.
func PhaseDeg(s complex128) float64 {
	return cmplx.Phase(s) * 180 / math.Pi
}

// forEachLine вызывает fn для каждой непустой строки с ровно columns числами.
// Строки с другим числом колонок или нечисловыми значениями пропускаются
// и возвращаются как DecodeError.
func forEachLine(payload []byte, columns int, fn func(vals []float64)) []DecodeError {
	text := string(bytes.ReplaceAll(payload, errorToken, errorReplacement))
	var skipped []DecodeError
	vals := make([]float64, columns)
	for i, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != columns {
			skipped = append(skipped, DecodeError{
				Line: i + 1,
				Text: strings.TrimSpace(line),
				Err:  fmt.Errorf("ожидалось %d значений, получено %d", columns, len(fields)),
			})
			continue
		}
		ok := true
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				skipped = append(skipped, DecodeError{Line: i + 1, Text: strings.TrimSpace(line), Err: err})
				ok = false
				break
			}
			vals[j] = v
		}
		if ok {
			fn(vals)
		}
	}
	if len(skipped) > 0 {
		decodeSkipped.Add(float64(len(skipped)))
	}
	return skipped
}

// DecodeSParameters разбирает ответ scan с парами "re im" по строке.
// Пары (0, 0) - заполнение прошивки - пропускаются. Ось частот строится как
// linspace(start, stop, requested) и перестраивается по фактическому числу точек.
func DecodeSParameters(payload []byte, start, stop float64, requested int) *ScanResult {
	var values []complex128
	skipped := forEachLine(payload, 2, func(v []float64) {
		if v[0] == 0 && v[1] == 0 {
			return
		}
		values = append(values, complex(v[0], v[1]))
	})

	freqs := Linspace(start, stop, requested)
	if len(values) != requested {
		freqs = Linspace(start, stop, len(values))
	}

	res := &ScanResult{
		Points:      make([]SweepPoint, len(values)),
		MagnitudeDB: make([]float64, len(values)),
		PhaseDeg:    make([]float64, len(values)),
		Requested:   requested,
		Skipped:     skipped,
	}
	for i, s := range values {
		res.Points[i] = SweepPoint{Frequency: freqs[i], S: s}
		res.MagnitudeDB[i] = MagnitudeDB(s)
		res.PhaseDeg[i] = PhaseDeg(s)
	}
	return res
}

// DecodeScanOutput разбирает ответ scan для произвольной маски. Если маска
// включает частоты, используется ось устройства, иначе linspace по числу точек.
// Строки, где все комплексные значения нулевые, считаются заполнением.
func DecodeScanOutput(payload []byte, mask Outmask, start, stop float64, requested int) (VNAData, []DecodeError) {
	var data VNAData
	columns := mask.Columns()
	if columns == 0 {
		return data, nil
	}
	hasFreq := mask.Has(OutmaskFrequency)
	skipped := forEachLine(payload, columns, func(v []float64) {
		col := 0
		var freq float64
		if hasFreq {
			freq = v[0]
			col++
		}
		var s11, s21 complex128
		if mask.Has(OutmaskS11) {
			s11 = complex(v[col], v[col+1])
			col += 2
		}
		if mask.Has(OutmaskS21) {
			s21 = complex(v[col], v[col+1])
		}
		if (mask.Has(OutmaskS11) || mask.Has(OutmaskS21)) && s11 == 0 && s21 == 0 {
			return
		}
		if hasFreq {
			data.Frequencies = append(data.Frequencies, freq)
		}
		if mask.Has(OutmaskS11) {
			data.S11 = append(data.S11, s11)
		}
		if mask.Has(OutmaskS21) {
			data.S21 = append(data.S21, s21)
		}
	})
	if !hasFreq {
		n := len(data.S11)
		if n == 0 {
			n = len(data.S21)
		}
		data.Frequencies = Linspace(start, stop, n)
	}
	return data, skipped
}

// DecodeFrequencies разбирает ответ команды frequencies: одна частота в строке.
func DecodeFrequencies(payload []byte) ([]float64, []DecodeError) {
	var freqs []float64
	skipped := forEachLine(payload, 1, func(v []float64) {
		freqs = append(freqs, v[0])
	})
	return freqs, skipped
}
