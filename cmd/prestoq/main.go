// Command prestoq runs SQL statements against a Presto or Trino
// coordinator from the command line.
//
// Connection settings come from flags, or from a named profile in a TOML
// configuration file (default ~/.prestoq.toml):
//
//	[profiles.prod]
//	host = "presto.internal"
//	port = 8080
//	user = "etl"
//	catalog = "hive"
//	schema = "warehouse"
//
//	[profiles.prod.session]
//	query_max_run_time = "30m"
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	profile    string
	verbose    bool

	host        string
	port        int
	user        string
	source      string
	catalog     string
	schema      string
	timezone    string
	maxAttempts int
	trino       bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "prestoq",
		Short:         "Run SQL statements against a Presto or Trino coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to the TOML configuration file (default ~/.prestoq.toml)")
	flags.StringVar(&opts.profile, "profile", "", "named profile from the configuration file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.host, "host", "", "coordinator hostname")
	flags.IntVar(&opts.port, "port", 0, "coordinator port")
	flags.StringVar(&opts.user, "user", "", "user to run queries as")
	flags.StringVar(&opts.source, "source", "prestoq", "source tag attached to queries")
	flags.StringVar(&opts.catalog, "catalog", "", "default catalog")
	flags.StringVar(&opts.schema, "schema", "", "default schema")
	flags.StringVar(&opts.timezone, "timezone", "", "session time zone")
	flags.IntVar(&opts.maxAttempts, "max-attempts", 0, "transport retry budget per request")
	flags.BoolVar(&opts.trino, "trino", false, "use Trino protocol headers")

	cmd.AddCommand(newQueryCommand(opts))
	cmd.AddCommand(newClusterCommand(opts))

	return cmd
}
