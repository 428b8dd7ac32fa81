package govna

import (
	"fmt"
	"sort"
	"sync"
)

// AutoPort - специальный путь: порт ищется по VID/PID.
const AutoPort = "auto"

// Opener открывает сессию по пути порта.
type Opener func(path string, cfg Config) (*Session, error)

func openSession(path string, cfg Config) (*Session, error) {
	if path == AutoPort {
		s, _, err := Autoconnect(cfg)
		return s, err
	}
	return Open(path, cfg)
}

// VNAPool хранит по одному владельцу VNA на каждый порт. Одна сессия на
// устройство; параллельные запросы к одному порту сериализуются в VNA.
type VNAPool struct {
	devices map[string]*VNA
	cfg     Config
	open    Opener
	mu      sync.RWMutex
}

func NewVNAPool(cfg Config) *VNAPool {
	return NewVNAPoolWithOpener(cfg, openSession)
}

// NewVNAPoolWithOpener создает пул с собственным способом открытия сессий
// (например, поверх другого транспорта).
func NewVNAPoolWithOpener(cfg Config, open Opener) *VNAPool {
	return &VNAPool{devices: make(map[string]*VNA), cfg: cfg, open: open}
}

func (p *VNAPool) Get(portPath string) (*VNA, error) {
	p.mu.RLock()
	if vna, exists := p.devices[portPath]; exists {
		p.mu.RUnlock()
		return vna, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if vna, exists := p.devices[portPath]; exists {
		return vna, nil
	}

	session, err := p.open(portPath, p.cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия порта %s: %w", portPath, err)
	}

	newVNA := NewVNA(session)
	p.devices[portPath] = newVNA
	return newVNA, nil
}

// Release закрывает и удаляет устройство из пула (например, после потери связи).
func (p *VNAPool) Release(portPath string) error {
	p.mu.Lock()
	vna, ok := p.devices[portPath]
	delete(p.devices, portPath)
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return vna.Close()
}

// Ports возвращает открытые порты.
func (p *VNAPool) Ports() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.devices))
	for port := range p.devices {
		out = append(out, port)
	}
	sort.Strings(out)
	return out
}

func (p *VNAPool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for port, vna := range p.devices {
		vna.Close()
		delete(p.devices, port)
	}
}
