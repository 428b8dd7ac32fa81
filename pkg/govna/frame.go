package govna

import (
	"bytes"
	"time"

	"github.com/rs/zerolog"
)

const (
	// PromptMarker - символ, которым оболочка устройства завершает каждый ответ.
	PromptMarker byte = '>'
	// PromptSuffix - полное приглашение оболочки.
	PromptSuffix = "ch>"

	defaultPollInterval = 10 * time.Millisecond
)

var lineEnd = []byte("\r\n")

// Frame - сырой ответ устройства, ограниченный маркером или таймаутом.
// TimedOut выставляется только в режиме с явным маркером конца.
type Frame struct {
	Data     []byte
	TimedOut bool
}

// FrameReader накапливает байты из Transport до выполнения условия завершения.
// Остаток после маркера сохраняется до следующего чтения или Discard.
type FrameReader struct {
	t       Transport
	pending []byte
	poll    time.Duration
	log     zerolog.Logger
}

// NewFrameReader создает читатель поверх транспорта. poll - пауза между опросами.
func NewFrameReader(t Transport, poll time.Duration, logger zerolog.Logger) *FrameReader {
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &FrameReader{t: t, poll: poll, log: logger}
}

// Discard отбрасывает накопленный остаток.
func (r *FrameReader) Discard() { r.pending = nil }

// Pending возвращает копию непрочитанного остатка.
func (r *FrameReader) Pending() []byte { return bytes.Clone(r.pending) }

func (r *FrameReader) fill() (int, error) {
	b, err := r.t.ReadAvailable()
	if err != nil {
		return 0, err
	}
	r.pending = append(r.pending, b...)
	return len(b), nil
}

// take отрезает первые n байт накопителя.
func (r *FrameReader) take(n int) []byte {
	out := bytes.Clone(r.pending[:n])
	r.pending = r.pending[n:]
	if len(r.pending) == 0 {
		r.pending = nil
	}
	return out
}

// ReadPrompt читает до первого символа приглашения включительно.
// Таймаута нет: обычные команды всегда отвечают приглашением.
// Байты после следующего "ch>" остаются в накопителе.
func (r *FrameReader) ReadPrompt() (Frame, error) {
	for {
		if i := bytes.IndexByte(r.pending, PromptMarker); i >= 0 {
			complete := bytes.Clone(r.pending[:i+1])
			rest := r.pending[i+1:]
			if j := bytes.Index(r.pending, []byte(PromptSuffix)); j >= 0 && j+len(PromptSuffix) > i+1 {
				rest = r.pending[j+len(PromptSuffix):]
			}
			r.pending = bytes.Clone(rest)
			if len(r.pending) == 0 {
				r.pending = nil
			}
			return Frame{Data: complete}, nil
		}
		n, err := r.fill()
		if err != nil {
			return Frame{}, err
		}
		if n == 0 {
			time.Sleep(r.poll)
		}
	}
}

// ReadUntil читает до marker включительно. Если маркер не пришел за timeout,
// возвращает накопленное с TimedOut и ErrFramingTimeout.
func (r *FrameReader) ReadUntil(marker []byte, timeout time.Duration) (Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		if i := bytes.Index(r.pending, marker); i >= 0 {
			return Frame{Data: r.take(i + len(marker))}, nil
		}
		if time.Now().After(deadline) {
			r.log.Warn().
				Bytes("marker", marker).
				Dur("timeout", timeout).
				Int("bytes", len(r.pending)).
				Msg("таймаут ожидания маркера конца, возвращены частичные данные")
			return Frame{Data: r.take(len(r.pending)), TimedOut: true}, ErrFramingTimeout
		}
		if _, err := r.fill(); err != nil {
			return Frame{Data: r.take(len(r.pending))}, err
		}
		if bytes.Contains(r.pending, marker) {
			continue
		}
		time.Sleep(r.poll)
	}
}

// ReadBinary читает ровно size байт полезной нагрузки. Если поток начинается
// с эха echo, эхо отбрасывается. Таймаут обрабатывается как в ReadUntil.
func (r *FrameReader) ReadBinary(size int, echo []byte, timeout time.Duration) (Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		skip, decided := r.echoPrefix(echo)
		if decided && len(r.pending)-skip >= size {
			r.take(skip)
			return Frame{Data: r.take(size)}, nil
		}
		if time.Now().After(deadline) {
			r.log.Warn().
				Int("expected", size).
				Int("bytes", len(r.pending)-skip).
				Dur("timeout", timeout).
				Msg("таймаут чтения бинарных данных, возвращены частичные данные")
			r.take(skip)
			return Frame{Data: r.take(len(r.pending)), TimedOut: true}, ErrFramingTimeout
		}
		n, err := r.fill()
		if err != nil {
			return Frame{}, err
		}
		if n == 0 {
			time.Sleep(r.poll)
		}
	}
}

// echoPrefix определяет длину эха в начале накопителя. decided=false, пока
// накопленных байт недостаточно, чтобы отличить эхо от данных.
func (r *FrameReader) echoPrefix(echo []byte) (skip int, decided bool) {
	if len(echo) == 0 {
		return 0, true
	}
	if len(r.pending) >= len(echo) {
		if bytes.HasPrefix(r.pending, echo) {
			return len(echo), true
		}
		return 0, true
	}
	if bytes.HasPrefix(echo, r.pending) {
		return 0, false
	}
	return 0, true
}

// CleanResponse убирает эхо команды (все до первого "\r\n" включительно)
// и завершающее приглашение "ch>". Содержимое полезной нагрузки не анализируется.
func CleanResponse(frame []byte) []byte {
	data := frame
	if i := bytes.Index(data, lineEnd); i >= 0 {
		data = data[i+len(lineEnd):]
	}
	data = bytes.TrimSuffix(data, []byte(PromptSuffix))
	return bytes.Clone(data)
}
