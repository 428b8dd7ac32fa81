// Package govna предоставляет API для работы с устройствами NanoVNA через
// текстовую командную оболочку (USB CDC).
package govna

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/govna-shell/internal/util"
)

// ResponseKind - вид полезной нагрузки ответа.
type ResponseKind int

const (
	ResponseText ResponseKind = iota
	ResponseBinary
	// ResponseError - ответ подставлен сессией (ошибка проверки или транспорта).
	ResponseError
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseText:
		return "text"
	case ResponseBinary:
		return "binary"
	case ResponseError:
		return "error"
	}
	return fmt.Sprintf("ResponseKind(%d)", int(k))
}

// Response - очищенный ответ устройства.
type Response struct {
	Kind    ResponseKind
	Payload []byte
}

// Text возвращает полезную нагрузку как строку.
func (r Response) Text() string { return string(r.Payload) }

// Session - диспетчер команд одной открытой сессии. Не потокобезопасен:
// в полете всегда не более одной команды. Для конкурентного доступа
// используйте VNA.
type Session struct {
	cfg    Config
	t      Transport
	r      *FrameReader
	log    zerolog.Logger
	closed bool
}

// NewSession создает сессию поверх уже открытого транспорта.
func NewSession(t Transport, cfg Config) *Session {
	cfg = cfg.withDefaults()
	logger := cfg.logger()
	return &Session{
		cfg: cfg,
		t:   t,
		r:   NewFrameReader(t, cfg.PollInterval, logger),
		log: logger,
	}
}

// Open открывает последовательный порт path и создает сессию.
func Open(path string, cfg Config) (*Session, error) {
	cfg = cfg.withDefaults()
	t, err := OpenSerial(path, cfg.PollInterval)
	if err != nil {
		return nil, err
	}
	s := NewSession(t, cfg)
	s.log.Info().Str("port", path).Str("profile", cfg.Device.Name).Msg("порт устройства открыт")
	return s, nil
}

// Autoconnect ищет порт NanoVNA по VID/PID и открывает его.
func Autoconnect(cfg Config) (*Session, string, error) {
	path, err := util.FindPort(util.NanoVNAVendorID, util.NanoVNAProductID)
	if err != nil {
		return nil, "", &ConnectionError{Op: "discover", Err: err}
	}
	s, err := Open(path, cfg)
	if err != nil {
		return nil, path, err
	}
	return s, path, nil
}

// Config возвращает действующие настройки сессии.
func (s *Session) Config() Config { return s.cfg }

// Close закрывает транспорт. Последующие вызовы завершаются ErrConnection.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.r.Discard()
	return s.t.Close()
}

// port возвращает путь порта, если транспорт его знает.
func (s *Session) port() string {
	if p, ok := s.t.(interface{ Path() string }); ok {
		return p.Path()
	}
	return ""
}

// Closed сообщает, закрыта ли сессия.
func (s *Session) Closed() bool { return s.closed }

func (s *Session) sentinel() Response {
	return Response{Kind: ResponseError, Payload: s.cfg.Sentinel()}
}

// reject возвращает сигнальный ответ, не трогая транспорт.
func (s *Session) reject(err *ValidationError) (Response, error) {
	validationFailures.WithLabelValues(err.Command).Inc()
	if s.cfg.Verbose {
		s.log.Warn().Str("command", err.Command).Str("reason", err.Reason).Msg("команда отклонена до отправки")
	}
	return s.sentinel(), err
}

// exec отправляет проверенную команду и возвращает очищенный ответ.
// При таймауте маркера конца возвращается частичный ответ вместе с ErrFramingTimeout.
func (s *Session) exec(cmd Command) (Response, error) {
	if s.closed {
		return s.sentinel(), &ConnectionError{Port: s.port(), Op: cmd.name}
	}
	start := time.Now()
	s.r.Discard()
	if err := s.t.Reset(); err != nil {
		return s.sentinel(), s.lost(err)
	}
	if err := s.t.Write([]byte(cmd.Line())); err != nil {
		return s.sentinel(), s.lost(err)
	}

	var (
		frame Frame
		err   error
	)
	switch cmd.mode {
	case FrameEndMarker:
		frame, err = s.r.ReadUntil(cmd.marker, cmd.timeout)
	case FrameBinary:
		frame, err = s.r.ReadBinary(cmd.size, []byte(cmd.Line()), cmd.timeout)
	default:
		frame, err = s.r.ReadPrompt()
	}
	elapsed := time.Since(start)
	commandDuration.WithLabelValues(cmd.name).Observe(elapsed.Seconds())
	if err != nil && !errors.Is(err, ErrFramingTimeout) {
		return s.sentinel(), s.lost(err)
	}

	resp := Response{Kind: ResponseText}
	if cmd.mode == FrameBinary {
		resp.Kind = ResponseBinary
		resp.Payload = frame.Data
	} else {
		resp.Payload = CleanResponse(frame.Data)
	}

	ev := s.log.Debug()
	if s.cfg.Verbose {
		ev = s.log.Info()
	}
	ev.Str("command", cmd.String()).
		Str("mode", cmd.mode.String()).
		Int("bytes", len(resp.Payload)).
		Dur("elapsed", elapsed).
		Bool("timed_out", frame.TimedOut).
		Msg("команда выполнена")

	if frame.TimedOut {
		framingTimeouts.WithLabelValues(cmd.name).Inc()
		return resp, fmt.Errorf("%s: %w", cmd.name, err)
	}
	return resp, nil
}

// send отправляет команду без ожидания ответа (устройство уходит в перезагрузку).
func (s *Session) send(cmd Command) error {
	if s.closed {
		return &ConnectionError{Port: s.port(), Op: cmd.name}
	}
	s.r.Discard()
	if err := s.t.Reset(); err != nil {
		return s.lost(err)
	}
	return s.lost(s.t.Write([]byte(cmd.Line())))
}

// lost закрывает сессию, если порт пропал: дальнейшие команды сразу
// получают ErrConnection без обращения к транспорту.
func (s *Session) lost(err error) error {
	if err != nil && util.IsDisconnect(err) {
		s.log.Error().Err(err).Str("port", s.port()).Msg("устройство отключено")
		s.Close()
	}
	return err
}
