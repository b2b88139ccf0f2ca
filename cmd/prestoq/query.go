package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	presto "github.com/prestodb/presto-go-client"
)

type queryOptions struct {
	format  string
	timeout time.Duration
	stats   bool
}

func newQueryCommand(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query [sql]",
		Short: "Execute a SQL statement and print the result",
		Long: "Execute a SQL statement and print the result.\n\n" +
			"The statement is taken from the argument, or read from stdin when absent.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statement, err := statementFromArgs(args)
			if err != nil {
				return err
			}
			return runQuery(cmd.Context(), root, opts, statement)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table or csv")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "overall query timeout (0 means none)")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print query statistics to stderr when done")

	return cmd
}

func statementFromArgs(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading statement from stdin: %w", err)
	}
	statement := strings.TrimSpace(string(b))
	if statement == "" {
		return "", fmt.Errorf("no statement given")
	}
	return statement, nil
}

func runQuery(ctx context.Context, root *rootOptions, opts *queryOptions, statement string) error {
	cfg, err := buildConfig(root)
	if err != nil {
		return err
	}
	cfg.Logger = &log.Logger

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	conn, err := presto.Connect(cfg)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	cur := conn.Cursor()
	if err := cur.Execute(ctx, statement); err != nil {
		return err
	}

	// An interrupt cancels the query server-side before exiting.
	go func() {
		<-ctx.Done()
		if err := cur.Cancel(context.Background()); err != nil && err != presto.ErrNoActiveQuery {
			log.Debug().Err(err).Msg("cancel on interrupt failed")
		}
	}()

	if err := printResult(ctx, cur, opts.format); err != nil {
		return err
	}

	if count, ok := cur.UpdateCount(); ok {
		fmt.Fprintf(os.Stderr, "%d rows affected\n", count)
	}
	for _, w := range cur.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", w.WarningCode.Name, w.Message)
	}
	if opts.stats {
		printStats(cur.Stats())
	}
	return nil
}

func printResult(ctx context.Context, cur *presto.Cursor, format string) error {
	switch format {
	case "table":
		return printTable(ctx, cur)
	case "csv":
		return printCSV(ctx, cur)
	default:
		return fmt.Errorf("unknown format %q: must be table or csv", format)
	}
}

func printTable(ctx context.Context, cur *presto.Cursor) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	defer w.Flush()

	headerWritten := false
	for row, err := range cur.All(ctx) {
		if err != nil {
			return err
		}
		if !headerWritten {
			writeHeader(w, cur.Description())
			headerWritten = true
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = renderCell(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	if !headerWritten {
		writeHeader(w, cur.Description())
	}
	return nil
}

func writeHeader(w io.Writer, cols []presto.Column) {
	if len(cols) == 0 {
		return
	}
	names := make([]string, len(cols))
	for i, col := range cols {
		names[i] = col.Name
	}
	fmt.Fprintln(w, strings.Join(names, "\t"))
}

func printCSV(ctx context.Context, cur *presto.Cursor) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	headerWritten := false
	for row, err := range cur.All(ctx) {
		if err != nil {
			return err
		}
		if !headerWritten {
			cols := cur.Description()
			names := make([]string, len(cols))
			for i, col := range cols {
				names[i] = col.Name
			}
			if err := w.Write(names); err != nil {
				return err
			}
			headerWritten = true
		}
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = renderCell(v)
		}
		if err := w.Write(cells); err != nil {
			return err
		}
	}
	return nil
}

func renderCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}

func printStats(stats presto.QueryStats) {
	fmt.Fprintf(os.Stderr, "query %s: %s, %d rows, %d bytes, cpu %dms, elapsed %dms, %d/%d splits\n",
		stats.QueryID, stats.State,
		stats.ProcessedRows, stats.ProcessedBytes,
		stats.CPUTimeMillis, stats.ElapsedTimeMillis,
		stats.CompletedSplits, stats.TotalSplits)
}
