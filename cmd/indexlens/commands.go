package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/guillermoBallester/indexlens/internal/adapter/mcp"
	"github.com/guillermoBallester/indexlens/internal/adapter/render"
	"github.com/guillermoBallester/indexlens/internal/config"
	"github.com/guillermoBallester/indexlens/internal/core/port"
	"github.com/guillermoBallester/indexlens/internal/core/service"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "indexlens",
		Short: "Index usage and InnoDB adaptive hash index diagnostics for MySQL and PostgreSQL",
		Long: "indexlens reads index usage counters from MySQL performance_schema or PostgreSQL\n" +
			"pg_stat_user_indexes and reports unused and redundant indexes with advisory DROP\n" +
			"statements. On MySQL it also samples the InnoDB adaptive hash index counters.\n\n" +
			"Connection settings come from DATABASE_URL and friends; flags override them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		newReportCmd(),
		newSnapshotCmd(),
		newMonitorCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Report unused, redundant and most accessed indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ctx = port.WithOperation(ctx, "report")
				report, err := a.reportService().BuildReport(ctx)
				if err != nil {
					return err
				}
				return a.write(func(w io.Writer, opts render.Options) error {
					return render.Report(w, a.cfg.OutputFormat, report, opts)
				})
			})
		},
	}
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Take one reading of the InnoDB adaptive hash index counters (MySQL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ctx = port.WithOperation(ctx, "snapshot")
				sampler, err := a.sampler(ctx)
				if err != nil {
					return err
				}
				sample, err := sampler.Sample(ctx)
				if err != nil {
					return err
				}
				return a.write(func(w io.Writer, opts render.Options) error {
					return render.Snapshot(w, a.cfg.OutputFormat, sample, opts)
				})
			})
		},
	}
}

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Sample the adaptive hash index on an interval and report per-interval hit rates (MySQL)",
		Long: "monitor samples the InnoDB adaptive hash index every --interval until --duration\n" +
			"elapses or the process is interrupted, then writes the collected series. Progress\n" +
			"lines are printed to stderr while sampling.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ctx = port.WithOperation(ctx, "monitor")
				sampler, err := a.sampler(ctx)
				if err != nil {
					return err
				}

				live := render.NewLiveObserver(os.Stderr, render.Options{Color: stderrColor()})
				series, runErr := a.newMonitor(sampler, live).Run(ctx, service.MonitorOptions{
					Interval: a.cfg.SampleInterval,
					Duration: a.cfg.MonitorDuration,
				})
				if series == nil {
					return runErr
				}
				if runErr != nil {
					a.logger.Warn("monitoring stopped early; writing partial series",
						slog.String("error", runErr.Error()),
						slog.Int("samples", len(series.Samples)),
					)
				}

				err = a.write(func(w io.Writer, opts render.Options) error {
					return render.Series(w, a.cfg.OutputFormat, series, opts)
				})
				return errors.Join(runErr, err)
			})
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as an MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				svc := mcp.Services{
					Report: a.reportService(),
					Logger: a.logger,
				}
				if a.ahi != nil {
					sampler, err := a.sampler(ctx)
					if err != nil {
						return err
					}
					svc.Sampler = sampler
					svc.NewMonitor = func() *service.Monitor {
						return a.newMonitor(sampler, nil)
					}
				}

				mcpServer := mcp.NewServer(version, svc, a.logger, a.tracer, a.inst)
				a.logger.Info("starting MCP server over stdio",
					slog.String("version", version),
					slog.String("db.system", a.cfg.Driver),
				)

				stdioServer := mcpserver.NewStdioServer(mcpServer)
				if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
					return fmt.Errorf("MCP server: %w", err)
				}
				a.logger.Info("MCP server stopped")
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "indexlens %s\n", version)
		},
	}
}

// withApp wires the adapters for one command and tears them down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cmd.Flags())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// write renders to the configured output. Text written to a terminal is
// colored unless NO_COLOR is set.
func (a *app) write(fn func(w io.Writer, opts render.Options) error) error {
	w, closeOut, err := a.output()
	if err != nil {
		return err
	}
	opts := render.Options{
		Color: a.cfg.OutputFormat == config.FormatText && w == io.Writer(os.Stdout) && !color.NoColor,
	}
	if err := fn(w, opts); err != nil {
		_ = closeOut()
		return fmt.Errorf("writing output: %w", err)
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if a.cfg.OutputFile != "" && a.cfg.OutputFile != "-" {
		a.logger.Info("output written", slog.String("file", a.cfg.OutputFile))
	}
	return nil
}

func stderrColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
