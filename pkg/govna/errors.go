package govna

import (
	"errors"
	"fmt"
)

// Базовые категории ошибок. Проверяются через errors.Is.
var (
	// ErrConnection - порт не открыт, закрыт или потерян. Сессия непригодна до переподключения.
	ErrConnection = errors.New("нет соединения с устройством")
	// ErrValidation - аргументы команды вне допустимой области; до устройства ничего не отправлено.
	ErrValidation = errors.New("некорректные аргументы команды")
	// ErrFramingTimeout - маркер конца ответа не пришел вовремя; возвращены частичные данные.
	ErrFramingTimeout = errors.New("истекло время ожидания маркера конца ответа")
	// ErrDecode - одна строка полезной нагрузки не разобрана.
	ErrDecode = errors.New("ошибка разбора строки")
	// ErrImageSizeMismatch - бинарный снимок экрана короче ожидаемого более чем на байт.
	ErrImageSizeMismatch = errors.New("размер снимка экрана не совпадает с ожидаемым")
)

// ConnectionError описывает сбой открытия или использования транспорта.
type ConnectionError struct {
	Port string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	msg := e.Op
	if e.Port != "" {
		msg += " " + e.Port
	}
	msg += ": " + ErrConnection.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConnection}
	}
	return []error{ErrConnection, e.Err}
}

// ValidationError описывает отклоненную до отправки команду.
type ValidationError struct {
	Command string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(command, format string, args ...any) *ValidationError {
	return &ValidationError{Command: command, Reason: fmt.Sprintf(format, args...)}
}

// DecodeError - пропущенная строка данных. Никогда не прерывает разбор целиком.
type DecodeError struct {
	Line int
	Text string
	Err  error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("строка %d %q: %v", e.Line, e.Text, e.Err)
}

func (e DecodeError) Unwrap() error { return ErrDecode }

// ImageSizeMismatchError - бинарный буфер меньше ожидаемого более чем на один байт.
type ImageSizeMismatchError struct {
	Expected int
	Got      int
}

func (e *ImageSizeMismatchError) Error() string {
	return fmt.Sprintf("%v: ожидалось %d байт, получено %d", ErrImageSizeMismatch, e.Expected, e.Got)
}

func (e *ImageSizeMismatchError) Unwrap() error { return ErrImageSizeMismatch }
