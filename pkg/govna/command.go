package govna

import (
	"strconv"
	"strings"
	"time"
)

// FramingMode определяет, как FrameReader ищет конец ответа команды.
type FramingMode int

const (
	// FramePrompt - до символа приглашения, без таймаута.
	FramePrompt FramingMode = iota
	// FrameEndMarker - до явного маркера конца с таймаутом.
	FrameEndMarker
	// FrameBinary - фиксированное число сырых байт.
	FrameBinary
)

func (m FramingMode) String() string {
	switch m {
	case FramePrompt:
		return "prompt"
	case FrameEndMarker:
		return "end-marker"
	case FrameBinary:
		return "binary"
	}
	return "FramingMode(" + strconv.Itoa(int(m)) + ")"
}

// Command - имя операции и уже проверенные аргументы. После создания не меняется.
type Command struct {
	name string
	args []string
	mode FramingMode
	// для FrameEndMarker
	marker  []byte
	timeout time.Duration
	// для FrameBinary
	size int
}

func newCommand(name string, args ...string) Command {
	return Command{name: name, args: args, mode: FramePrompt}
}

func (c Command) withEndMarker(marker string, timeout time.Duration) Command {
	c.mode = FrameEndMarker
	c.marker = []byte(marker)
	c.timeout = timeout
	return c
}

func (c Command) withBinary(size int, timeout time.Duration) Command {
	c.mode = FrameBinary
	c.size = size
	c.timeout = timeout
	return c
}

// Name возвращает имя команды оболочки.
func (c Command) Name() string { return c.name }

// Args возвращает копию аргументов.
func (c Command) Args() []string { return append([]string(nil), c.args...) }

// Mode возвращает режим разбиения ответа.
func (c Command) Mode() FramingMode { return c.mode }

// Line форматирует строку команды "{name} {arg1} {arg2} ...\r\n".
func (c Command) Line() string {
	var sb strings.Builder
	sb.WriteString(c.name)
	for _, a := range c.args {
		sb.WriteByte(' ')
		sb.WriteString(a)
	}
	sb.WriteString("\r\n")
	return sb.String()
}

func (c Command) String() string {
	return strings.TrimSuffix(c.Line(), "\r\n")
}

func itoa(v int) string { return strconv.Itoa(v) }
func i64toa(v int64) string { return strconv.FormatInt(v, 10) }
func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
