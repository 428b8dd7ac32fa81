package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/momentics/govna-shell/pkg/govna"
)

// Config - настройки сервера из переменных окружения.
type Config struct {
	HTTPAddr string
	// NATSURL; пустое значение отключает публикацию сканов.
	NATSURL string
	// DeviceProfile - имя встроенного профиля или путь к TOML-файлу.
	DeviceProfile string
	// AcquirePort - порт для периодического сканирования; "auto" - поиск по VID/PID.
	AcquirePort     string
	AcquireInterval time.Duration
	Subject         string
	Verbose         bool
}

func Load() *Config {
	return &Config{
		HTTPAddr:        getEnv("GOVNA_HTTP_ADDR", ":8080"),
		NATSURL:         getEnv("GOVNA_NATS_URL", ""),
		DeviceProfile:   getEnv("GOVNA_DEVICE_PROFILE", "ultra"),
		AcquirePort:     getEnv("GOVNA_ACQUIRE_PORT", ""),
		AcquireInterval: getEnvAsDuration("GOVNA_ACQUIRE_INTERVAL", 0),
		Subject:         getEnv("GOVNA_NATS_SUBJECT", "govna.scan"),
		Verbose:         getEnvAsBool("GOVNA_VERBOSE", false),
	}
}

// SessionConfig собирает настройки сессий устройства.
func (c *Config) SessionConfig() (govna.Config, error) {
	cfg := govna.DefaultConfig()
	cfg.Verbose = c.Verbose
	profile, err := loadProfile(c.DeviceProfile)
	if err != nil {
		return govna.Config{}, err
	}
	cfg.Device = profile
	return cfg, nil
}

func loadProfile(ref string) (govna.DeviceProfile, error) {
	if strings.HasSuffix(ref, ".toml") {
		return govna.LoadDeviceProfile(ref)
	}
	return govna.Preset(ref)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
