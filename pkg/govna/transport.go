package govna

import (
	"errors"
	"io"
	"time"

	"github.com/momentics/govna-shell/internal/util"
)

// Transport - байтовый поток до устройства. Блокировок не выполняет:
// владелец сессии сам сериализует обращения.
type Transport interface {
	// Write отправляет байты целиком.
	Write(p []byte) error
	// ReadAvailable возвращает уже накопленные байты, пустой срез если их нет.
	ReadAvailable() ([]byte, error)
	// Reset отбрасывает входной и выходной буферы ОС.
	Reset() error
	Close() error
}

// SerialTransport реализует Transport поверх последовательного порта.
type SerialTransport struct {
	path   string
	port   util.SerialPortInterface
	buf    []byte
	closed bool
}

// OpenSerial открывает порт path. readTimeout ограничивает одно чтение и
// задает шаг опроса; повторных попыток нет.
func OpenSerial(path string, readTimeout time.Duration) (*SerialTransport, error) {
	port, err := util.OpenPort(path, nil)
	if err != nil {
		return nil, &ConnectionError{Port: path, Op: "open", Err: err}
	}
	t, err := NewSerialTransport(path, port, readTimeout)
	if err != nil {
		port.Close()
		return nil, err
	}
	return t, nil
}

// NewSerialTransport оборачивает уже открытый порт.
func NewSerialTransport(path string, port util.SerialPortInterface, readTimeout time.Duration) (*SerialTransport, error) {
	if readTimeout <= 0 {
		readTimeout = defaultPollInterval
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		return nil, &ConnectionError{Port: path, Op: "configure", Err: err}
	}
	return &SerialTransport{path: path, port: port, buf: make([]byte, 4096)}, nil
}

// Path возвращает путь порта.
func (t *SerialTransport) Path() string { return t.path }

func (t *SerialTransport) Write(p []byte) error {
	if t.closed {
		return &ConnectionError{Port: t.path, Op: "write"}
	}
	for len(p) > 0 {
		n, err := t.port.Write(p)
		if err != nil {
			return &ConnectionError{Port: t.path, Op: "write", Err: err}
		}
		if n == 0 {
			return &ConnectionError{Port: t.path, Op: "write", Err: io.ErrShortWrite}
		}
		p = p[n:]
	}
	return nil
}

func (t *SerialTransport) ReadAvailable() ([]byte, error) {
	if t.closed {
		return nil, &ConnectionError{Port: t.path, Op: "read"}
	}
	n, err := t.port.Read(t.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConnectionError{Port: t.path, Op: "read", Err: err}
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, t.buf[:n])
	return out, nil
}

func (t *SerialTransport) Reset() error {
	if t.closed {
		return &ConnectionError{Port: t.path, Op: "reset"}
	}
	if err := t.port.ResetInputBuffer(); err != nil {
		return &ConnectionError{Port: t.path, Op: "reset", Err: err}
	}
	if err := t.port.ResetOutputBuffer(); err != nil {
		return &ConnectionError{Port: t.path, Op: "reset", Err: err}
	}
	return nil
}

// Close закрывает порт. Повторный вызов безопасен.
func (t *SerialTransport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.port.Close()
}
