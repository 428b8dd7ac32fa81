// Command vnactl - консольный клиент NanoVNA: сканирование, снимок экрана,
// произвольные команды оболочки и интерактивный режим.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momentics/govna-shell/internal/logging"
	"github.com/momentics/govna-shell/pkg/govna"
)

var (
	portPath      string
	profileRef    string
	verbose       bool
	errorSentinel bool
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "vnactl",
	Short: "NanoVNA command-line client",
	Long: `vnactl talks to a NanoVNA over its USB serial shell.

Examples:
  vnactl ports
  vnactl scan --start 1e6 --stop 900e6 --points 101 > dut.s1p
  vnactl capture -o screen.png
  vnactl shell`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.ConfigureRuntime("vnactl")
		if lvl, ok := logging.ParseLevel(logLevel); ok {
			logging.SetLevel(lvl)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portPath, "port", "p", govna.AutoPort, "serial port path, or \"auto\" to find the device by USB VID/PID")
	rootCmd.PersistentFlags().StringVar(&profileRef, "profile", "ultra", "device profile: "+strings.Join(govna.PresetNames(), ", ")+" or a .toml file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every command sent to the device")
	rootCmd.PersistentFlags().BoolVar(&errorSentinel, "error-sentinel", false, "return \"ERROR\" instead of an empty response on rejected commands")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, off)")

	rootCmd.AddCommand(scanCmd, captureCmd, infoCmd, rawCmd, portsCmd, shellCmd)
}

func sessionConfig() (govna.Config, error) {
	cfg := govna.DefaultConfig()
	cfg.Verbose = verbose
	cfg.ErrorSentinel = errorSentinel
	var (
		profile govna.DeviceProfile
		err     error
	)
	if strings.HasSuffix(profileRef, ".toml") {
		profile, err = govna.LoadDeviceProfile(profileRef)
	} else {
		profile, err = govna.Preset(profileRef)
	}
	if err != nil {
		return govna.Config{}, err
	}
	cfg.Device = profile
	return cfg, nil
}

// openSession открывает порт из флага --port.
func openSession() (*govna.Session, error) {
	cfg, err := sessionConfig()
	if err != nil {
		return nil, err
	}
	if portPath == govna.AutoPort {
		s, path, err := govna.Autoconnect(cfg)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "connected to %s\n", path)
		return s, nil
	}
	return govna.Open(portPath, cfg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
