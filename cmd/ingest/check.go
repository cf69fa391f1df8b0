package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/listings/internal/core"
	"github.com/JonMunkholm/listings/internal/ingest"
)

type checkOptions struct {
	strict    bool
	format    string
	delimiter string
	maxSize   int64
}

// fileReport is the outcome of checking one file.
type fileReport struct {
	File   string        `json:"file"`
	Result ingest.Result `json:"result"`
}

func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Run the import pipeline over exports without saving",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), args, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit 1 when any row or entity is rejected")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&opts.delimiter, "delimiter", string(ingest.DefaultDelimiter), "field delimiter")
	cmd.Flags().Int64Var(&opts.maxSize, "max-size", core.DefaultMaxFileSize, "maximum file size in bytes")
	return cmd
}

func runCheck(out io.Writer, paths []string, opts *checkOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	delim, size := utf8.DecodeRuneInString(opts.delimiter)
	if delim == utf8.RuneError || size != len(opts.delimiter) {
		return fmt.Errorf("delimiter must be a single character, got %q", opts.delimiter)
	}
	importer := ingest.New(ingest.Options{Delimiter: delim})

	reports := make([]fileReport, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			res, err := checkFile(importer, path, opts.maxSize)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = fileReport{File: path, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			writeTextReport(out, r)
		}
	}

	if opts.strict {
		for _, r := range reports {
			if r.Result.HasErrors() || len(r.Result.MissingColumns) > 0 {
				return errRejected
			}
		}
	}
	return nil
}

func checkFile(importer *ingest.Importer, path string, maxSize int64) (ingest.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Result{}, err
	}
	defer f.Close()

	text, err := core.ReadInput(f, maxSize)
	if err != nil {
		return ingest.Result{}, err
	}
	return importer.Import(text), nil
}

func writeTextReport(out io.Writer, r fileReport) {
	st := r.Result.Stats
	fmt.Fprintf(out, "%s: %d rows, %d buildings, %d units valid; %d buildings, %d units invalid; %d rows rejected\n",
		filepath.Base(r.File), st.Rows, st.ValidBuildings, st.ValidUnits,
		st.InvalidBuildings, st.InvalidUnits, st.RowErrors)

	if len(r.Result.MissingColumns) > 0 {
		fmt.Fprintf(out, "  missing columns: %v\n", r.Result.MissingColumns)
	}
	for _, e := range r.Result.RowErrors {
		fmt.Fprintf(out, "  line %d: %s\n", e.Line, e.Message)
	}
	for _, e := range r.Result.InvalidEntities {
		fmt.Fprintf(out, "  %s %s: %s (lines %v)\n", e.Kind, e.ID, e.Reason, e.Lines)
		for _, fe := range e.FieldErrors {
			fmt.Fprintf(out, "    %s\n", fe.Error())
		}
	}
}
