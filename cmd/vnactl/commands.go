package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/momentics/govna-shell/internal/util"
	"github.com/momentics/govna-shell/pkg/govna"
)

var captureOutput string

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Save the device screen as PNG",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return saveCapture(s, captureOutput)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print firmware version and board information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		version, err := s.Version()
		if err != nil {
			return err
		}
		info, err := s.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version: %s\n%s", strings.TrimSpace(version.Text()), info.Text())
		return nil
	},
}

var rawCmd = &cobra.Command{
	Use:   "raw <command> [args...]",
	Short: "Send one shell command and print the cleaned response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		resp, err := s.Command(strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), resp.Text())
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := util.ListPorts()
		if err != nil {
			return err
		}
		for _, p := range ports {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "screen.png", "PNG file to write")
}

func saveCapture(s *govna.Session, path string) error {
	img, err := s.CaptureScreen()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := img.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved %dx%d screen to %s\n", img.Width, img.Height, path)
	return nil
}
