// Package util содержит вспомогательные утилиты, не являющиеся частью публичного API.
package util

import (
	"errors"
	"time"

	"go.bug.st/serial"
)

// SerialPortInterface определяет интерфейс для работы с последовательным портом.
// Это позволяет нам использовать реальный порт в production и мок-объект в тестах.
type SerialPortInterface interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// DefaultMode - режим порта для USB CDC. Скорость игнорируется виртуальным
// портом, но go.bug.st/serial требует ненулевое значение.
var DefaultMode = serial.Mode{
	BaudRate: 115200,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

// OpenPort открывает реальный последовательный порт.
// go.bug.st/serial.Port уже реализует SerialPortInterface.
func OpenPort(path string, mode *serial.Mode) (SerialPortInterface, error) {
	if mode == nil {
		m := DefaultMode
		mode = &m
	}
	p, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// IsDisconnect сообщает, указывает ли ошибка порта на потерю устройства.
func IsDisconnect(err error) bool {
	var code serial.PortErrorCode
	var ptrErr *serial.PortError
	var valErr serial.PortError
	switch {
	case errors.As(err, &ptrErr):
		code = ptrErr.Code()
	case errors.As(err, &valErr):
		code = valErr.Code()
	default:
		return false
	}
	switch code {
	case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
		return true
	default:
		return false
	}
}
