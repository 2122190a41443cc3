package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlsleuth/internal/config"
	"github.com/ppiankov/sqlsleuth/internal/logging"
)

var (
	dbURL   string
	verbose bool
	cfg     config.Config
)

// ExitError carries a process exit code through RunE without losing the
// error message.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:          "sqlsleuth",
		Short:        "Trace SQL queries back to the application code that built them",
		Long:         "Analyzes raw SQL or transaction logs and searches a Rails codebase for the scopes, finders, and transaction blocks that could have produced them.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(verbose, cmd.ErrOrStderr())

			cwd, err := os.Getwd()
			if err != nil {
				cwd = "."
			}
			cfg, err = config.Load(cwd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.Debug("config loaded", "path", cwd)

			// Apply config defaults if flags not explicitly set
			if dbURL == "" {
				if envURL := os.Getenv("SQLSLEUTH_DB_URL"); envURL != "" {
					dbURL = envURL
				} else if cfg.DBURL != "" {
					dbURL = cfg.DBURL
				}
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection URL for schema validation (or set SQLSLEUTH_DB_URL)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newQueryCmd(version))
	root.AddCommand(newTransactionCmd(version))
	root.AddCommand(newAnalyzeCmd(version))

	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("sqlsleuth " + version)
		},
	}
}

// readInput resolves the SQL input: inline flag first, then file, then
// stdin.
func readInput(cmd *cobra.Command, sql, file string) (string, error) {
	if sql != "" {
		return sql, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no input: pass --sql, --file, or pipe SQL on stdin")
	}
	return string(data), nil
}

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}
