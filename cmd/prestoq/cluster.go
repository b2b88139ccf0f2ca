package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	presto "github.com/prestodb/presto-go-client"
)

func newClusterCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cluster",
		Short: "Print coordinator cluster statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(root)
			if err != nil {
				return err
			}
			cfg.Logger = &log.Logger

			conn, err := presto.Connect(cfg)
			if err != nil {
				return err
			}
			defer conn.Close(cmd.Context())

			stats, err := conn.ClusterInfo(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintf(w, "active workers\t%d\n", stats.ActiveWorkers)
			fmt.Fprintf(w, "running queries\t%d\n", stats.RunningQueries)
			fmt.Fprintf(w, "queued queries\t%d\n", stats.QueuedQueries)
			fmt.Fprintf(w, "blocked queries\t%d\n", stats.BlockedQueries)
			fmt.Fprintf(w, "running drivers\t%d\n", stats.RunningDrivers)
			fmt.Fprintf(w, "running tasks\t%d\n", stats.RunningTasks)
			fmt.Fprintf(w, "reserved memory\t%.0f\n", stats.ReservedMemory)
			return nil
		},
	}
}
