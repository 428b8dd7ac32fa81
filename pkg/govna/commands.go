package govna

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Outmask - битовая маска каналов, выводимых командой scan.
type Outmask int

const (
	OutmaskFrequency Outmask = 1 << iota
	OutmaskS11
	OutmaskS21

	outmaskAll = OutmaskFrequency | OutmaskS11 | OutmaskS21
)

// Has сообщает, включен ли канал ch.
func (m Outmask) Has(ch Outmask) bool { return m&ch != 0 }

// Columns - число колонок в строке вывода scan для данной маски.
func (m Outmask) Columns() int {
	n := 0
	if m.Has(OutmaskFrequency) {
		n++
	}
	if m.Has(OutmaskS11) {
		n += 2
	}
	if m.Has(OutmaskS21) {
		n += 2
	}
	return n
}

func (s *Session) validateScan(start, stop int64, points int) *ValidationError {
	if start < 0 || start >= stop {
		return invalid("scan", "требуется 0 <= start < stop, получено start=%d stop=%d", start, stop)
	}
	if points < 1 || points > s.cfg.Device.MaxPoints {
		return invalid("scan", "число точек %d вне диапазона 1..%d", points, s.cfg.Device.MaxPoints)
	}
	return nil
}

// Scan выполняет "scan {start} {stop} {points} {outmask}". Ответ читается
// до приглашения с таймаутом ScanTimeout: длинные сканирования приходят пачками.
func (s *Session) Scan(start, stop int64, points int, outmask Outmask) (Response, error) {
	if err := s.validateScan(start, stop, points); err != nil {
		return s.reject(err)
	}
	if outmask < 0 || outmask > outmaskAll {
		return s.reject(invalid("scan", "outmask %d вне диапазона 0..7", outmask))
	}
	cmd := newCommand("scan", i64toa(start), i64toa(stop), itoa(points), itoa(int(outmask))).
		withEndMarker(PromptSuffix, s.cfg.ScanTimeout)
	return s.exec(cmd)
}

// ScanNoMask выполняет сканирование без маски вывода ("scan {start} {stop} {points}").
func (s *Session) ScanNoMask(start, stop int64, points int) (Response, error) {
	if err := s.validateScan(start, stop, points); err != nil {
		return s.reject(err)
	}
	cmd := newCommand("scan", i64toa(start), i64toa(stop), itoa(points)).
		withEndMarker(PromptSuffix, s.cfg.ScanTimeout)
	return s.exec(cmd)
}

// ScanS11 сканирует диапазон и разбирает пары S11.
func (s *Session) ScanS11(start, stop int64, points int) (*ScanResult, error) {
	resp, err := s.Scan(start, stop, points, OutmaskS11)
	if err != nil && resp.Kind == ResponseError {
		return nil, err
	}
	res := DecodeSParameters(resp.Payload, float64(start), float64(stop), points)
	return res, err
}

// ScanData сканирует диапазон с произвольной маской и разбирает все каналы.
func (s *Session) ScanData(start, stop int64, points int, outmask Outmask) (VNAData, []DecodeError, error) {
	resp, err := s.Scan(start, stop, points, outmask)
	if err != nil && resp.Kind == ResponseError {
		return VNAData{}, nil, err
	}
	data, skipped := DecodeScanOutput(resp.Payload, outmask, float64(start), float64(stop), points)
	return data, skipped, err
}

// Data выводит массив трассы: 0..6 (S11, S21, затем поправочные коэффициенты).
func (s *Session) Data(array int) (Response, error) {
	if array < 0 || array > 6 {
		return s.reject(invalid("data", "допустимы массивы 0..6, получено %d", array))
	}
	return s.exec(newCommand("data", itoa(array)))
}

// Frequencies возвращает частоты последнего сканирования.
func (s *Session) Frequencies() (Response, error) {
	return s.exec(newCommand("frequencies"))
}

// FrequencyList возвращает разобранные частоты последнего сканирования
// и строки, которые не удалось разобрать.
func (s *Session) FrequencyList() ([]float64, []DecodeError, error) {
	resp, err := s.Frequencies()
	if err != nil {
		return nil, nil, err
	}
	freqs, skipped := DecodeFrequencies(resp.Payload)
	if len(skipped) > 0 {
		s.log.Debug().Int("skipped", len(skipped)).Int("parsed", len(freqs)).Msg("frequencies: пропущены строки")
	}
	return freqs, skipped, nil
}

type markerKind int

const (
	markerQuery markerKind = iota
	markerOn
	markerOff
	markerPeak
	markerIndex
)

// MarkerAction - действие над маркером.
type MarkerAction struct {
	kind  markerKind
	index int
}

var (
	MarkerQuery = MarkerAction{kind: markerQuery}
	MarkerOn    = MarkerAction{kind: markerOn}
	MarkerOff   = MarkerAction{kind: markerOff}
	MarkerPeak  = MarkerAction{kind: markerPeak}
)

// MarkerIndex ставит маркер на точку с индексом i.
func MarkerIndex(i int) MarkerAction { return MarkerAction{kind: markerIndex, index: i} }

func (a MarkerAction) String() string {
	switch a.kind {
	case markerOn:
		return "on"
	case markerOff:
		return "off"
	case markerPeak:
		return "peak"
	case markerIndex:
		return itoa(a.index)
	}
	return ""
}

// Marker управляет маркером 1..4.
func (s *Session) Marker(id int, action MarkerAction) (Response, error) {
	if id < 1 || id > 4 {
		return s.reject(invalid("marker", "номер маркера %d вне диапазона 1..4", id))
	}
	switch action.kind {
	case markerQuery:
		return s.exec(newCommand("marker", itoa(id)))
	case markerOn, markerOff, markerPeak:
	case markerIndex:
		if action.index < 0 || action.index >= s.cfg.Device.MaxPoints {
			return s.reject(invalid("marker", "индекс %d вне диапазона 0..%d", action.index, s.cfg.Device.MaxPoints-1))
		}
	default:
		return s.reject(invalid("marker", "неизвестное действие"))
	}
	return s.exec(newCommand("marker", itoa(id), action.String()))
}

// Markers выводит состояние всех маркеров.
func (s *Session) Markers() (Response, error) {
	return s.exec(newCommand("marker"))
}

// TraceID - номер трассы 0..3 либо все трассы.
type TraceID struct {
	n   int
	all bool
}

// AllTraces адресует все трассы.
var AllTraces = TraceID{all: true}

// TraceNum адресует одну трассу.
func TraceNum(n int) TraceID { return TraceID{n: n} }

func (id TraceID) valid() bool { return id.all || (id.n >= 0 && id.n <= 3) }

func (id TraceID) String() string {
	if id.all {
		return "all"
	}
	return itoa(id.n)
}

// TraceFormat - формат отображения трассы.
type TraceFormat string

const (
	TraceLogMag     TraceFormat = "logmag"
	TracePhase      TraceFormat = "phase"
	TraceSmith      TraceFormat = "smith"
	TraceLinear     TraceFormat = "linear"
	TraceDelay      TraceFormat = "delay"
	TraceSWR        TraceFormat = "swr"
	TracePolar      TraceFormat = "polar"
	TraceReal       TraceFormat = "real"
	TraceImag       TraceFormat = "imag"
	TraceResistance TraceFormat = "resistance"
	TraceReactance  TraceFormat = "reactance"
	TraceOff        TraceFormat = "off"
)

var traceFormats = map[TraceFormat]bool{
	TraceLogMag: true, TracePhase: true, TraceSmith: true, TraceLinear: true,
	TraceDelay: true, TraceSWR: true, TracePolar: true, TraceReal: true,
	TraceImag: true, TraceResistance: true, TraceReactance: true, TraceOff: true,
}

// TraceQuery выводит настройки трасс.
func (s *Session) TraceQuery() (Response, error) {
	return s.exec(newCommand("trace"))
}

// SetTraceFormat задает формат трассы: "trace {id} {format}".
func (s *Session) SetTraceFormat(id TraceID, format TraceFormat) (Response, error) {
	if !id.valid() {
		return s.reject(invalid("trace", "номер трассы %s вне диапазона 0..3|all", id))
	}
	if !traceFormats[format] {
		return s.reject(invalid("trace", "неизвестный формат %q", format))
	}
	return s.exec(newCommand("trace", id.String(), string(format)))
}

// Trace задает формат и канал-источник (0 - S11, 1 - S21): "trace {id} {format} {src}".
func (s *Session) Trace(id TraceID, format TraceFormat, src int) (Response, error) {
	if !id.valid() {
		return s.reject(invalid("trace", "номер трассы %s вне диапазона 0..3|all", id))
	}
	if !traceFormats[format] || format == TraceOff {
		return s.reject(invalid("trace", "формат %q не принимает источник", format))
	}
	if src != 0 && src != 1 {
		return s.reject(invalid("trace", "источник %d, допустимы 0|1", src))
	}
	return s.exec(newCommand("trace", id.String(), string(format), itoa(src)))
}

// TraceSetting - числовой параметр трассы.
type TraceSetting string

const (
	TraceScale    TraceSetting = "scale"
	TraceRefPos   TraceSetting = "refpos"
	TraceRefLevel TraceSetting = "reflevel"
	TraceChannel  TraceSetting = "channel"
)

// TraceLevel - значение параметра трассы: число либо auto.
type TraceLevel struct {
	value float64
	auto  bool
}

// TraceAuto поручает выбор значения прошивке.
var TraceAuto = TraceLevel{auto: true}

// Level задает явное значение параметра.
func Level(v float64) TraceLevel { return TraceLevel{value: v} }

func (l TraceLevel) String() string {
	if l.auto {
		return "auto"
	}
	return ftoa(l.value)
}

func checkTraceLevel(setting TraceSetting, l TraceLevel) *ValidationError {
	if l.auto {
		if setting == TraceChannel {
			return invalid("trace", "channel не принимает auto")
		}
		return nil
	}
	v := l.value
	switch setting {
	case TraceScale:
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return invalid("trace", "масштаб должен быть положительным, получено %v", v)
		}
	case TraceRefPos, TraceRefLevel:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return invalid("trace", "некорректное значение %s: %v", setting, v)
		}
	case TraceChannel:
		if v != 0 && v != 1 {
			return invalid("trace", "канал %v, допустимы 0|1", v)
		}
	default:
		return invalid("trace", "неизвестный параметр %q", setting)
	}
	return nil
}

// SetTraceValue задает "trace {id} {scale|refpos|reflevel|channel} {value}".
func (s *Session) SetTraceValue(id TraceID, setting TraceSetting, value float64) (Response, error) {
	return s.setTrace(id, setting, Level(value))
}

// SetTraceAuto задает "trace {id} {scale|refpos|reflevel} auto".
func (s *Session) SetTraceAuto(id TraceID, setting TraceSetting) (Response, error) {
	return s.setTrace(id, setting, TraceAuto)
}

func (s *Session) setTrace(id TraceID, setting TraceSetting, level TraceLevel) (Response, error) {
	if id.all || !id.valid() {
		return s.reject(invalid("trace", "параметр задается для одной трассы 0..3, получено %s", id))
	}
	if err := checkTraceLevel(setting, level); err != nil {
		return s.reject(err)
	}
	return s.exec(newCommand("trace", id.String(), string(setting), level.String()))
}

// SetTraceLevel задает масштаб или опорный уровень всех трасс:
// "trace {scale|reflevel} {auto|value}".
func (s *Session) SetTraceLevel(setting TraceSetting, level TraceLevel) (Response, error) {
	if setting != TraceScale && setting != TraceRefLevel {
		return s.reject(invalid("trace", "без номера трассы допустимы только scale|reflevel, получено %q", setting))
	}
	if err := checkTraceLevel(setting, level); err != nil {
		return s.reject(err)
	}
	return s.exec(newCommand("trace", string(setting), level.String()))
}

// TraceAction - операция над сохраненной трассой.
type TraceAction string

const (
	TraceCopy     TraceAction = "copy"
	TraceFreeze   TraceAction = "freeze"
	TraceSubtract TraceAction = "subtract"
	TraceView     TraceAction = "view"
	TraceValue    TraceAction = "value"
)

// DoTraceAction выполняет "trace {id} {action}".
func (s *Session) DoTraceAction(id TraceID, action TraceAction) (Response, error) {
	if id.all || !id.valid() {
		return s.reject(invalid("trace", "действие выполняется для одной трассы 0..3, получено %s", id))
	}
	switch action {
	case TraceCopy, TraceFreeze, TraceSubtract, TraceView, TraceValue:
	default:
		return s.reject(invalid("trace", "неизвестное действие %q", action))
	}
	return s.exec(newCommand("trace", id.String(), string(action)))
}

// Capture запрашивает дамп экрана. Всегда бинарный путь: эхо и приглашение
// не разбираются, читается ровно width*height*2 байт.
func (s *Session) Capture() (Response, error) {
	size := s.cfg.Device.ScreenBytes()
	return s.exec(newCommand("capture").withBinary(size, s.cfg.CaptureTimeout))
}

// CaptureScreen запрашивает дамп экрана и декодирует его в RGBA.
func (s *Session) CaptureScreen() (*ScreenCapture, error) {
	resp, err := s.Capture()
	if err != nil && resp.Kind == ResponseError {
		return nil, err
	}
	img, derr := DecodeScreen(resp.Payload, s.cfg.Device.ScreenWidth, s.cfg.Device.ScreenHeight)
	if derr != nil {
		return nil, derr
	}
	if s.cfg.Verbose {
		s.log.Info().Int("width", img.Width).Int("height", img.Height).Msg("снимок экрана получен")
	}
	return img, nil
}

// SweepParam - параметр диапазона сканирования.
type SweepParam string

const (
	SweepStart  SweepParam = "start"
	SweepStop   SweepParam = "stop"
	SweepCenter SweepParam = "center"
	SweepSpan   SweepParam = "span"
	SweepCW     SweepParam = "cw"
)

// SweepQuery выводит текущие границы сканирования.
func (s *Session) SweepQuery() (Response, error) {
	return s.exec(newCommand("sweep"))
}

// SetSweep задает один параметр: "sweep {param} {freq}".
func (s *Session) SetSweep(param SweepParam, freq float64) (Response, error) {
	switch param {
	case SweepStart, SweepStop, SweepCenter, SweepCW:
		if err := s.checkFreq(freq); err != nil {
			return s.reject(err)
		}
	case SweepSpan:
		if math.IsNaN(freq) || math.IsInf(freq, 0) || freq <= 0 || freq > s.cfg.Device.MaxFreq-s.cfg.Device.MinFreq {
			return s.reject(invalid("sweep", "полоса %v Гц вне допустимого диапазона", freq))
		}
	default:
		return s.reject(invalid("sweep", "неизвестный параметр %q", param))
	}
	return s.exec(newCommand("sweep", string(param), ftoa(math.Round(freq))))
}

func (s *Session) checkFreq(freq float64) *ValidationError {
	if math.IsNaN(freq) || freq < s.cfg.Device.MinFreq || freq > s.cfg.Device.MaxFreq {
		return invalid("sweep", "частота %v Гц вне диапазона %v..%v", freq, s.cfg.Device.MinFreq, s.cfg.Device.MaxFreq)
	}
	return nil
}

func (s *Session) checkRange(start, stop int64) *ValidationError {
	if start < 0 || start >= stop {
		return invalid("sweep", "требуется 0 <= start < stop, получено start=%d stop=%d", start, stop)
	}
	for _, f := range []int64{start, stop} {
		if err := s.checkFreq(float64(f)); err != nil {
			return err
		}
	}
	return nil
}

// RunSweep задает диапазон целиком: "sweep {start} {stop} {points}".
func (s *Session) RunSweep(start, stop int64, points int) (Response, error) {
	if err := s.checkRange(start, stop); err != nil {
		return s.reject(err)
	}
	if points < 1 || points > s.cfg.Device.MaxPoints {
		return s.reject(invalid("sweep", "число точек %d вне диапазона 1..%d", points, s.cfg.Device.MaxPoints))
	}
	return s.exec(newCommand("sweep", i64toa(start), i64toa(stop), itoa(points)))
}

// Pause приостанавливает сканирование.
func (s *Session) Pause() (Response, error) { return s.exec(newCommand("pause")) }

// Resume возобновляет сканирование.
func (s *Session) Resume() (Response, error) { return s.exec(newCommand("resume")) }

// Reset перезагружает устройство. Порт при этом пропадает, поэтому ответ
// не ожидается, а сессия закрывается.
func (s *Session) Reset() error {
	if s.cfg.Verbose {
		s.log.Info().Msg("отправлен сброс, соединение будет потеряно")
	}
	err := s.send(newCommand("reset"))
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

func checkSlot(command string, slot int) *ValidationError {
	if slot < 0 || slot > 4 {
		return invalid(command, "ячейка %d вне диапазона 0..4", slot)
	}
	return nil
}

// Save сохраняет настройки и калибровку в ячейку 0..4.
func (s *Session) Save(slot int) (Response, error) {
	if err := checkSlot("save", slot); err != nil {
		return s.reject(err)
	}
	return s.exec(newCommand("save", itoa(slot)))
}

// Recall загружает ячейку 0..4.
func (s *Session) Recall(slot int) (Response, error) {
	if err := checkSlot("recall", slot); err != nil {
		return s.reject(err)
	}
	return s.exec(newCommand("recall", itoa(slot)))
}

// Info выводит сведения о прошивке и железе.
func (s *Session) Info() (Response, error) { return s.exec(newCommand("info")) }

// Version выводит версию прошивки.
func (s *Session) Version() (Response, error) { return s.exec(newCommand("version")) }

// Help выводит список команд оболочки.
func (s *Session) Help() (Response, error) { return s.exec(newCommand("help")) }

// SaveConfig сохраняет конфигурацию устройства.
func (s *Session) SaveConfig() (Response, error) { return s.exec(newCommand("saveconfig")) }

// clearConfigKey - ключ защиты команды clearconfig.
const clearConfigKey = "1234"

// ClearConfig сбрасывает конфигурацию и калибровки к заводским.
// Для применения нужен Reset.
func (s *Session) ClearConfig() (Response, error) {
	return s.exec(newCommand("clearconfig", clearConfigKey))
}

// TouchCal запускает калибровку сенсорного экрана.
func (s *Session) TouchCal() (Response, error) { return s.exec(newCommand("touchcal")) }

// TouchTest запускает проверку сенсорного экрана.
func (s *Session) TouchTest() (Response, error) { return s.exec(newCommand("touchtest")) }

// Command отправляет произвольную строку оболочки. Строка не должна содержать
// перевод строки: один вызов - одна команда. Команды scan, data, marker,
// save, recall и sweep разбираются и проходят те же проверки, что и
// одноименные методы; остальные уходят на устройство как есть.
func (s *Session) Command(line string) (Response, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return s.reject(invalid("command", "пустая команда"))
	}
	if strings.ContainsAny(line, "\r\n") {
		return s.reject(invalid("command", "строка содержит перевод строки"))
	}
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	switch name {
	case "capture":
		return s.reject(invalid("command", "capture возвращает бинарные данные, используйте Capture"))
	case "reset":
		return s.reject(invalid("command", "используйте Reset"))
	case "scan":
		return s.commandScan(args)
	case "data":
		if len(args) != 1 {
			return s.reject(invalid("data", "ожидается один аргумент {0..6}"))
		}
		array, err := parseInt("data", args[0])
		if err != nil {
			return s.reject(err)
		}
		return s.Data(array)
	case "marker":
		return s.commandMarker(args)
	case "save", "recall":
		if len(args) != 1 {
			return s.reject(invalid(name, "ожидается номер ячейки 0..4"))
		}
		slot, err := parseInt(name, args[0])
		if err != nil {
			return s.reject(err)
		}
		if name == "save" {
			return s.Save(slot)
		}
		return s.Recall(slot)
	case "sweep":
		return s.commandSweep(args)
	}
	return s.exec(newCommand(name, args...))
}

func (s *Session) commandScan(args []string) (Response, error) {
	if len(args) != 3 && len(args) != 4 {
		return s.reject(invalid("scan", "ожидается scan {start} {stop} {points} [{outmask}], получено %d аргументов", len(args)))
	}
	start, err := parseInt64("scan", args[0])
	if err != nil {
		return s.reject(err)
	}
	stop, err := parseInt64("scan", args[1])
	if err != nil {
		return s.reject(err)
	}
	points, err := parseInt("scan", args[2])
	if err != nil {
		return s.reject(err)
	}
	if len(args) == 3 {
		return s.ScanNoMask(start, stop, points)
	}
	mask, err := parseInt("scan", args[3])
	if err != nil {
		return s.reject(err)
	}
	return s.Scan(start, stop, points, Outmask(mask))
}

func (s *Session) commandMarker(args []string) (Response, error) {
	if len(args) == 0 {
		return s.Markers()
	}
	if len(args) > 2 {
		return s.reject(invalid("marker", "ожидается marker [{id} [on|off|peak|{index}]]"))
	}
	id, err := parseInt("marker", args[0])
	if err != nil {
		return s.reject(err)
	}
	if len(args) == 1 {
		return s.Marker(id, MarkerQuery)
	}
	switch args[1] {
	case "on":
		return s.Marker(id, MarkerOn)
	case "off":
		return s.Marker(id, MarkerOff)
	case "peak":
		return s.Marker(id, MarkerPeak)
	}
	index, err := parseInt("marker", args[1])
	if err != nil {
		return s.reject(err)
	}
	return s.Marker(id, MarkerIndex(index))
}

func (s *Session) commandSweep(args []string) (Response, error) {
	if len(args) == 0 {
		return s.SweepQuery()
	}
	switch param := SweepParam(args[0]); param {
	case SweepStart, SweepStop, SweepCenter, SweepSpan, SweepCW:
		if len(args) != 2 {
			return s.reject(invalid("sweep", "ожидается sweep %s {freq}", param))
		}
		freq, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return s.reject(invalid("sweep", "частота %q не является числом", args[1]))
		}
		return s.SetSweep(param, freq)
	}
	switch len(args) {
	case 2:
		start, err := parseInt64("sweep", args[0])
		if err != nil {
			return s.reject(err)
		}
		stop, err := parseInt64("sweep", args[1])
		if err != nil {
			return s.reject(err)
		}
		if verr := s.checkRange(start, stop); verr != nil {
			return s.reject(verr)
		}
		return s.exec(newCommand("sweep", i64toa(start), i64toa(stop)))
	case 3:
		start, err := parseInt64("sweep", args[0])
		if err != nil {
			return s.reject(err)
		}
		stop, err := parseInt64("sweep", args[1])
		if err != nil {
			return s.reject(err)
		}
		points, err := parseInt("sweep", args[2])
		if err != nil {
			return s.reject(err)
		}
		return s.RunSweep(start, stop, points)
	}
	return s.reject(invalid("sweep", "ожидается sweep [{param} {freq} | {start} {stop} [{points}]]"))
}

func parseInt64(command, arg string) (int64, *ValidationError) {
	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, invalid(command, "аргумент %q не является целым числом", arg)
	}
	return v, nil
}

func parseInt(command, arg string) (int, *ValidationError) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, invalid(command, "аргумент %q не является целым числом", arg)
	}
	return v, nil
}

// String для отладки.
func (s *Session) String() string {
	return fmt.Sprintf("Session{profile=%s closed=%t}", s.cfg.Device.Name, s.closed)
}
