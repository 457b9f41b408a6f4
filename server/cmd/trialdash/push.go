package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trialdash/trialdash/server/internal/push"
)

func runPush(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(args.config)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args.data)
	if err != nil {
		return fmt.Errorf("read %q: %w", args.data, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := push.New(push.Options{
		Server:             args.server,
		Header:             cfg.Server.Auth.Header,
		Key:                cfg.Server.Auth.Key(),
		InsecureSkipVerify: args.insecure,
		MaxAttempts:        args.attempts,
	})
	res, err := p.Push(ctx, args.data, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: dataset %s (%d resources, %d trials)\n",
		res.Message, res.DatasetID, res.ResourcesCount, res.TrialsCount)
	return nil
}

