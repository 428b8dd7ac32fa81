package govna

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DeviceProfile - ограничения конкретной модели, используемые только для
// проверки аргументов. Настройки самого устройства не меняются.
type DeviceProfile struct {
	Name         string  `toml:"name"`
	MaxPoints    int     `toml:"max_points"`
	MinFreq      float64 `toml:"min_freq"`
	MaxFreq      float64 `toml:"max_freq"`
	ScreenWidth  int     `toml:"screen_width"`
	ScreenHeight int     `toml:"screen_height"`
}

// Встроенные профили. Семейства отличаются пределом числа точек, поэтому
// профиль выбирается один раз при конфигурации сессии.
var presets = map[string]DeviceProfile{
	"ultra": {
		Name:         "ultra",
		MaxPoints:    450,
		MinFreq:      100e3,
		MaxFreq:      3e9,
		ScreenWidth:  480,
		ScreenHeight: 320,
	},
	"basic": {
		Name:         "basic",
		MaxPoints:    290,
		MinFreq:      100e3,
		MaxFreq:      3e9,
		ScreenWidth:  320,
		ScreenHeight: 240,
	},
	"f-v2": {
		Name:         "f-v2",
		MaxPoints:    201,
		MinFreq:      50e3,
		MaxFreq:      3e9,
		ScreenWidth:  800,
		ScreenHeight: 480,
	},
}

// Preset возвращает встроенный профиль по имени.
func Preset(name string) (DeviceProfile, error) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return DeviceProfile{}, fmt.Errorf("профиль %q отсутствует в библиотеке (доступны: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// PresetNames возвращает отсортированный список встроенных профилей.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LoadDeviceProfile читает профиль из TOML-файла. Незаданные поля берутся
// из профиля, указанного ключом base (по умолчанию "ultra").
func LoadDeviceProfile(path string) (DeviceProfile, error) {
	var raw struct {
		Base string `toml:"base"`
		DeviceProfile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DeviceProfile{}, fmt.Errorf("ошибка чтения профиля (%s): %w", path, err)
	}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return DeviceProfile{}, fmt.Errorf("ошибка разбора профиля (%s): %w", path, err)
	}
	base := raw.Base
	if base == "" {
		base = "ultra"
	}
	p, err := Preset(base)
	if err != nil {
		return DeviceProfile{}, err
	}
	merge(&p, raw.DeviceProfile)
	if err := p.Validate(); err != nil {
		return DeviceProfile{}, fmt.Errorf("профиль %s: %w", path, err)
	}
	return p, nil
}

func merge(dst *DeviceProfile, src DeviceProfile) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if src.MaxPoints != 0 {
		dst.MaxPoints = src.MaxPoints
	}
	if src.MinFreq != 0 {
		dst.MinFreq = src.MinFreq
	}
	if src.MaxFreq != 0 {
		dst.MaxFreq = src.MaxFreq
	}
	if src.ScreenWidth != 0 {
		dst.ScreenWidth = src.ScreenWidth
	}
	if src.ScreenHeight != 0 {
		dst.ScreenHeight = src.ScreenHeight
	}
}

// Validate проверяет согласованность профиля.
func (p DeviceProfile) Validate() error {
	if p.MaxPoints <= 0 {
		return errors.New("max_points должно быть больше нуля")
	}
	if p.MinFreq < 0 || p.MinFreq >= p.MaxFreq {
		return errors.New("некорректный частотный диапазон")
	}
	if p.ScreenWidth <= 0 || p.ScreenHeight <= 0 {
		return errors.New("некорректное разрешение экрана")
	}
	return nil
}

// ScreenBytes - размер ответа capture: 2 байта на пиксель.
func (p DeviceProfile) ScreenBytes() int {
	return p.ScreenWidth * p.ScreenHeight * 2
}

// Config - настройки сессии. Передается явно, глобального состояния нет.
type Config struct {
	// Verbose включает диагностическое сообщение на каждый вызов.
	Verbose bool
	// ErrorSentinel: при ошибке проверки возвращать "ERROR" вместо пустого ответа.
	ErrorSentinel bool
	Device        DeviceProfile
	// ScanTimeout ограничивает ожидание маркера конца для scan.
	ScanTimeout time.Duration
	// CaptureTimeout ограничивает чтение бинарного снимка экрана.
	CaptureTimeout time.Duration
	// PollInterval - пауза между опросами транспорта.
	PollInterval time.Duration
	// Logger; nil означает глобальный log.Logger.
	Logger *zerolog.Logger
}

// DefaultConfig возвращает настройки для профиля "ultra".
func DefaultConfig() Config {
	return Config{
		Device:         presets["ultra"],
		ScanTimeout:    10 * time.Second,
		CaptureTimeout: 5 * time.Second,
		PollInterval:   defaultPollInterval,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Device.MaxPoints == 0 {
		c.Device = d.Device
	}
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = d.ScanTimeout
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = d.CaptureTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

func (c Config) logger() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}
	return log.Logger
}

// Sentinel возвращает ответ, подставляемый вместо обращения к устройству.
func (c Config) Sentinel() []byte {
	if c.ErrorSentinel {
		return []byte("ERROR")
	}
	return []byte{}
}
