package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dadi/api-filestore/adapter/connector"
	"github.com/dadi/api-filestore/domain"
	"github.com/dadi/api-filestore/internal/config"
)

// app holds the state shared by the commands of a single run.
type app struct {
	env       string
	configDir string
	path      string
	database  string
	noColor   bool
	verbose   bool

	conn *connector.Connector
}

// run executes the command line in args. The connector opened for the
// command is closed even when the command fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	rootCmd := a.rootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	err := rootCmd.ExecuteContext(ctx)
	if a.conn != nil {
		if errClose := a.conn.Close(ctx); errClose != nil && !errors.Is(errClose, domain.ErrClosed) {
			err = errors.Join(err, errClose)
		}
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "filestore",
		Short: "Filestore CLI - query and edit file-backed collections",
		Long: `filestore opens a file-backed database and runs a single collection
operation on it. Filters, updates and options are given as JSON.

Examples:
  # Insert two documents
  filestore --db books insert books '[{"title":"Dune"},{"title":"Emma"}]'

  # Find the second page of books sorted by title
  filestore --db books find books '{}' --sort title --limit 10 --skip 10

  # Increment a counter
  filestore --db books update books '{"title":"Dune"}' '{"$inc":{"reads":1}}'`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.env, "env", "e", "", "Configuration environment (defaults to $"+config.EnvVar+")")
	flags.StringVar(&a.configDir, "config-dir", ".", "Directory holding .env and config/")
	flags.StringVarP(&a.path, "path", "p", "", "Directory holding the datafiles")
	flags.StringVarP(&a.database, "db", "d", "", "Database name")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colors")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log engine activity to stderr")

	rootCmd.AddCommand(
		a.findCmd(),
		a.insertCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.indexCmd(),
		a.indexesCmd(),
		a.statsCmd(),
		a.dropCmd(),
		a.versionCmd(),
	)
	return rootCmd
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	if a.noColor {
		color.NoColor = true
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if a.verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	}

	cfg, err := config.Load(a.env, config.WithDir(a.configDir), config.WithLogger(logger))
	if err != nil {
		return err
	}
	if a.path != "" {
		cfg.DatabasePath = a.path
	}
	if a.database != "" {
		cfg.DefaultDatabase = a.database
	}
	// Each run saves on close, so the timer would only race the exit.
	cfg.AutosaveEnabled = false

	a.conn = connector.NewConnector(append(cfg.ConnectorOptions(), connector.WithLogger(logger))...)
	if cmd.Name() == "version" {
		return nil
	}
	return a.conn.Connect(cmd.Context(), domain.ConnectParams{Database: cfg.DefaultDatabase})
}
