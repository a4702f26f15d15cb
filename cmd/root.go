package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/nconklindev/csvrange/internal/config"
	"github.com/nconklindev/csvrange/internal/logging"
	"github.com/nconklindev/csvrange/internal/parser"
	"github.com/nconklindev/csvrange/internal/render"
	"github.com/nconklindev/csvrange/internal/session"
	"github.com/nconklindev/csvrange/internal/source"
	"github.com/nconklindev/csvrange/internal/types"
	"github.com/nconklindev/csvrange/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewRootCmd builds the command tree. cfg supplies the flag defaults, so
// flags override the environment.
func NewRootCmd(cfg config.Config, info BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "csvrange [file]",
		Short:         "View a row range of a CSV file as a table.",
		Args:          cobra.MaximumNArgs(1),
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			return withLogFile(cfg, cmd.ErrOrStderr(), func() error {
				return runTUI(cmd, cfg, args)
			})
		},
	}
	rootCmd.SetVersionTemplate(fmt.Sprintf("csvrange %s\ncommit: %s\nbuilt: %s\n", info.Version, info.Commit, info.Date))

	rootCmd.PersistentFlags().IntVarP(&cfg.Start, "start", "s", cfg.Start, "Starting row number (offset into data rows)")
	rootCmd.PersistentFlags().IntVarP(&cfg.End, "end", "e", cfg.End, "Last row number (exclusive offset into data rows)")
	rootCmd.PersistentFlags().IntVarP(&cfg.MaxCellWidth, "max-cell-width", "w", cfg.MaxCellWidth, "Truncate cells wider than this when drawing (0 disables)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Enable verbose output")
	rootCmd.Flags().StringVarP(&cfg.Dir, "dir", "d", cfg.Dir, "Directory the file picker starts in")
	rootCmd.Flags().StringVarP(&cfg.LogFile, "log-file", "l", cfg.LogFile, "Log file (empty disables logging)")

	rootCmd.AddCommand(newPrintCmd(&cfg))

	return rootCmd
}

// withLogFile sends logs to cfg.LogFile while run executes. Once run
// returns, the file is closed and logging goes back to stderr so a failure
// reported by the caller is still seen.
func withLogFile(cfg config.Config, stderr io.Writer, run func() error) error {
	logFile, err := logging.SetupFile(cfg.LogFile, cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		_ = logFile.Close()
		logging.Setup(stderr, cfg.Verbose)
	}()

	return run()
}

func runTUI(cmd *cobra.Command, cfg config.Config, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
		if !source.IsRemote(path) {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
	}

	model := ui.InitialModel(ui.Options{
		Dir:          cfg.Dir,
		Path:         path,
		Range:        cfg.Range(),
		MaxCellWidth: cfg.MaxCellWidth,
		Loader:       NewLoader(source.NewResolver()),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(cmd.Context()))
	_, err := p.Run()
	return err
}

func newPrintCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "print <file>",
		Short: "Render the row range of a local or s3:// CSV file to stdout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			logging.Setup(cmd.ErrOrStderr(), cfg.Verbose)

			sess := session.New(cfg.Range())
			if err := sess.Load(cmd.Context(), NewLoader(source.NewResolver()), args[0], nil); err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			out, _, ok := sess.Output()
			if !ok {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), session.PlaceholderText)
				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), render.View(out, render.ViewOptions{MaxCellWidth: cfg.MaxCellWidth}))
			return err
		},
	}
}

// NewLoader resolves remote paths before handing them to the parser. The
// table keeps the path the user asked for, not the temp file.
func NewLoader(resolver *source.Resolver) session.Loader {
	return session.LoaderFunc(func(ctx context.Context, path string, progress chan<- float64) (*types.Table, error) {
		local, cleanup, err := resolver.Resolve(ctx, path)
		if err != nil {
			return nil, err
		}
		defer cleanup()

		table, err := parser.ReadTable(ctx, local, progress)
		if err != nil {
			return nil, err
		}

		table.Path = path
		return table, nil
	})
}

func Execute(info BuildInfo) {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error(fmt.Sprintf("failed to load config: %v", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd(cfg, info).ExecuteContext(ctx); err != nil {
		slog.Error(fmt.Sprintf("command execution failed: %v", err))
		stop()
		os.Exit(1)
	}
}
