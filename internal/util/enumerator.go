package util

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Идентификатор USB CDC, под которым прошивки NanoVNA/tinySA видны в системе.
const (
	NanoVNAVendorID  = "0483"
	NanoVNAProductID = "5740"
)

// ErrPortNotFound возвращается, если ни один порт не совпал по VID/PID.
var ErrPortNotFound = errors.New("устройство с указанным VID/PID не найдено")

// listPorts подменяется в тестах.
var listPorts = enumerator.GetDetailedPortsList

// FindPort возвращает путь первого USB-порта с заданной парой VID/PID.
func FindPort(vid, pid string) (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", fmt.Errorf("ошибка перечисления портов: %w", err)
	}
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if strings.EqualFold(p.VID, vid) && strings.EqualFold(p.PID, pid) {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("%w (VID %s, PID %s)", ErrPortNotFound, vid, pid)
}

// ListPorts возвращает описание всех USB-портов в виде "имя VID:PID".
func ListPorts() ([]string, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("ошибка перечисления портов: %w", err)
	}
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if !p.IsUSB {
			out = append(out, p.Name)
			continue
		}
		out = append(out, fmt.Sprintf("%s %s:%s", p.Name, strings.ToLower(p.VID), strings.ToLower(p.PID)))
	}
	return out, nil
}
