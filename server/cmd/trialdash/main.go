// Command trialdash serves the clinical-trial resource dashboard API and
// renders bottleneck reports offline. It can also push a dataset file to a
// running server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trialdash/trialdash/server/internal/push"
)

var args struct {
	config string
	uiDir  string

	data   string
	format string
	out    string

	server   string
	insecure bool
	attempts int
}

var rootCmd = &cobra.Command{
	Use:           "trialdash",
	Short:         "Clinical trial resource dashboard",
	Long:          "Serve the clinical trial resource dashboard API (default) or render a bottleneck report from a dataset file.",
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket stream and metrics endpoint",
	RunE:  runServe,
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload a dataset file to a running trialdash server",
	RunE:  runPush,
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the bottleneck report for a dataset file",
	RunE:  runReport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&args.config, "config", "", "path to config file; empty uses built-in defaults")
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().StringVar(&args.uiDir, "ui-dir", "", "serve the UI static files from this directory (e.g. ui/dist); leave empty to disable")
	}

	reportCmd.Flags().StringVar(&args.data, "data", "", "dataset file (.json or .xlsx)")
	reportCmd.Flags().StringVar(&args.format, "format", "table", "output format: table|json|csv|xlsx")
	reportCmd.Flags().StringVar(&args.out, "out", "", "write to this file instead of stdout")
	_ = reportCmd.MarkFlagRequired("data")

	pushCmd.Flags().StringVar(&args.data, "data", "", "dataset file (.json or .xlsx)")
	pushCmd.Flags().StringVar(&args.server, "server", "http://localhost:8000", "base URL of the trialdash server")
	pushCmd.Flags().BoolVar(&args.insecure, "insecure", false, "skip TLS certificate verification")
	pushCmd.Flags().IntVar(&args.attempts, "attempts", push.DefaultMaxAttempts, "total upload attempts on transient failures")
	_ = pushCmd.MarkFlagRequired("data")

	rootCmd.AddCommand(serveCmd, reportCmd, pushCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trialdash:", err)
		os.Exit(1)
	}
}
