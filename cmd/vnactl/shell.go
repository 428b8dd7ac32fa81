package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/momentics/govna-shell/pkg/govna"
)

// shellWords - команды оболочки прибора для автодополнения, по алфавиту.
var shellWords = []string{
	"capture", "clearconfig", "data", "exit", "frequencies", "help", "info",
	"marker", "pause", "quit", "recall", "reset", "resume", "save", "saveconfig",
	"scan", "sweep", "touchcal", "touchtest", "trace", "version",
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive device shell",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return runShell(s, cmd.OutOrStdout())
	},
}

func historyPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".vnactl_history"
	}
	return filepath.Join(dir, "vnactl_history")
}

func runShell(s *govna.Session, out io.Writer) error {
	shell := liner.NewLiner()
	defer shell.Close()

	shell.SetCtrlCAborts(true)
	shell.SetCompleter(func(line string) (c []string) {
		for _, name := range shellWords {
			if strings.HasPrefix(name, strings.ToLower(line)) {
				c = append(c, name)
			}
		}
		return
	})

	history := historyPath()
	if f, err := os.Open(history); err == nil {
		shell.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(history); err == nil {
			shell.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(out, `Interactive mode, "help" lists device commands, Ctrl-D to quit.`)
	for {
		input, err := shell.Prompt("ch> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		shell.AppendHistory(input)

		quit, err := execLine(s, input, out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// execLine выполняет одну строку интерактивного режима. quit=true завершает цикл.
func execLine(s *govna.Session, line string, out io.Writer) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit":
		return true, nil
	case "reset":
		return true, s.Reset()
	case "capture":
		path := "screen.png"
		if len(fields) > 1 {
			path = fields[1]
		}
		return false, saveCapture(s, path)
	case "scan":
		return false, shellScan(s, fields[1:], out)
	}
	resp, err := s.Command(line)
	if err != nil {
		return false, err
	}
	fmt.Fprint(out, resp.Text())
	return false, nil
}

// shellScan печатает S11 в табличном виде, если указаны start stop [points].
// Четвертый аргумент задает outmask: ответ печатается как есть.
func shellScan(s *govna.Session, args []string, out io.Writer) error {
	switch len(args) {
	case 2, 3:
	case 4:
		return shellScanMask(s, args, out)
	default:
		_, err := s.Command(strings.Join(append([]string{"scan"}, args...), " "))
		return err
	}
	start, err := parseHz("start", args[0])
	if err != nil {
		return err
	}
	stop, err := parseHz("stop", args[1])
	if err != nil {
		return err
	}
	points := 101
	if len(args) == 3 {
		if points, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("points: %w", err)
		}
	}
	res, err := s.ScanS11(start, stop, points)
	if res == nil {
		return err
	}
	if werr := writeScan(out, res, "table"); werr != nil {
		return werr
	}
	return err
}

func shellScanMask(s *govna.Session, args []string, out io.Writer) error {
	start, err := parseHz("start", args[0])
	if err != nil {
		return err
	}
	stop, err := parseHz("stop", args[1])
	if err != nil {
		return err
	}
	points, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("points: %w", err)
	}
	mask, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("outmask: %w", err)
	}
	resp, err := s.Scan(start, stop, points, govna.Outmask(mask))
	if err != nil && !errors.Is(err, govna.ErrFramingTimeout) {
		return err
	}
	fmt.Fprint(out, resp.Text())
	return err
}

// parseHz принимает частоту в любой записи ParseFloat, например 1e6.
func parseHz(name, arg string) (int64, error) {
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: %w: частота %q", name, govna.ErrValidation, arg)
	}
	return int64(f), nil
}
