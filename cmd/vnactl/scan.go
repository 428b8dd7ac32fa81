package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/momentics/govna-shell/pkg/govna"
)

var (
	scanStart  float64
	scanStop   float64
	scanPoints int
	scanFormat string
	scanOutput string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan S11 and print it as Touchstone or a table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scanFormat != "touchstone" && scanFormat != "table" {
			return fmt.Errorf("unknown format %q (touchstone, table)", scanFormat)
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.ScanS11(int64(scanStart), int64(scanStop), scanPoints)
		if res == nil {
			return err
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		for _, skipped := range res.Skipped {
			fmt.Fprintf(os.Stderr, "skipped %v\n", skipped)
		}

		out := cmd.OutOrStdout()
		if scanOutput != "" {
			f, err := os.Create(scanOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return writeScan(out, res, scanFormat)
	},
}

func init() {
	scanCmd.Flags().Float64Var(&scanStart, "start", 1e6, "start frequency, Hz")
	scanCmd.Flags().Float64Var(&scanStop, "stop", 900e6, "stop frequency, Hz")
	scanCmd.Flags().IntVarP(&scanPoints, "points", "n", 101, "number of points")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "touchstone", "output format (touchstone, table)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "", "write to file instead of stdout")
}

func writeScan(w io.Writer, res *govna.ScanResult, format string) error {
	if format == "touchstone" {
		data := res.AsS11()
		_, err := io.WriteString(w, data.ToTouchstone())
		return err
	}
	if _, err := fmt.Fprintf(w, "%14s %12s %12s %10s %10s\n", "freq_hz", "re", "im", "mag_db", "phase_deg"); err != nil {
		return err
	}
	for i, p := range res.Points {
		if _, err := fmt.Fprintf(w, "%14.0f %12.6f %12.6f %10.3f %10.3f\n",
			p.Frequency, real(p.S), imag(p.S), res.MagnitudeDB[i], res.PhaseDeg[i]); err != nil {
			return err
		}
	}
	return nil
}
