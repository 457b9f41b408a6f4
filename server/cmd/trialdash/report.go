package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/trialdash/trialdash/server/internal/compute"
	"github.com/trialdash/trialdash/server/internal/ingest"
	"github.com/trialdash/trialdash/server/internal/report"
	"github.com/trialdash/trialdash/server/internal/source"
)

// errInvalidDataset is returned after the validation messages were printed.
var errInvalidDataset = errors.New("dataset failed validation")

func runReport(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if args.out != "" {
		f, err := os.Create(args.out)
		if err != nil {
			return fmt.Errorf("create %q: %w", args.out, err)
		}
		defer f.Close()
		out = f
	}
	return renderReport(out, cmd.ErrOrStderr(), args.data, args.format)
}

// renderReport loads the dataset at path and writes its bottleneck report to
// w. Validation messages go to errw, one per line.
func renderReport(w, errw io.Writer, path, format string) error {
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := source.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := ingest.Decode(ingest.DetectFormat(path, data), data)
	if err != nil {
		return err
	}
	ds, res := ingest.Build(doc)
	if !res.Valid {
		for _, msg := range res.Errors {
			fmt.Fprintln(errw, msg)
		}
		return errInvalidDataset
	}
	return report.Write(w, f, compute.Summarize(ds), compute.Analyze(ds))
}
