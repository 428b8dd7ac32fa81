package testlog

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/momentics/govna-shell/internal/logging"
)

// Start настраивает логгер тестового профиля и отмечает начало теста.
func Start(t *testing.T) {
	t.Helper()
	logger := logging.ConfigureTests()
	logger.Info().Str("test", t.Name()).Msg("start")
}

// Logger возвращает логгер, пишущий в t.Log, чтобы вывод показывался только у упавших тестов.
func Logger(t *testing.T) *zerolog.Logger {
	t.Helper()
	l := zerolog.New(zerolog.ConsoleWriter{Out: zerolog.TestWriter{T: t}, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}}).
		Level(zerolog.DebugLevel)
	return &l
}
