// Package main is the entry point for the mcpdoctor CLI.
//
// mcpdoctor diagnoses externally-launched MCP tool servers: it validates
// their declaration files statically and, on request, launches each declared
// server to probe its capability surface over stdio JSON-RPC. The same
// diagnostics are available over HTTP via the serve subcommand.
package main

import (
	"fmt"
	"os"
	"time"

	"mcpdoctor/internal/config"
	"mcpdoctor/internal/diagnose"
	"mcpdoctor/internal/logging"
	"mcpdoctor/internal/mcpconfig"
	"mcpdoctor/internal/probe"
	"mcpdoctor/internal/render"
	"mcpdoctor/internal/web"

	"github.com/spf13/cobra"
)

func main() {
	logger := logging.NewAppLogger()

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *logging.AppLogger) *cobra.Command {
	root := &cobra.Command{
		Use:          "mcpdoctor",
		Short:        "Diagnose MCP tool-server declarations and capabilities",
		SilenceUsage: true,
	}

	root.AddCommand(newDiagnoseCmd(logger))
	root.AddCommand(newServeCmd(logger))
	return root
}

func newDiagnoseCmd(logger *logging.AppLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose [declaration-file...]",
		Short: "Validate declared MCP servers, optionally probing their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, args, logger)
		},
	}

	cmd.Flags().Bool("probe", false, "Launch each valid server and probe its capability surface")
	cmd.Flags().Duration("timeout", 0, "Per-server probe deadline (default from config, 10s)")
	cmd.Flags().String("format", "text", "Output format: text | json")

	return cmd
}

func runDiagnose(cmd *cobra.Command, args []string, logger *logging.AppLogger) error {
	withProbe, _ := cmd.Flags().GetBool("probe")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	format, _ := cmd.Flags().GetString("format")
	out := cmd.OutOrStdout()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.ProbeByDefault {
		withProbe = true
	}

	sources, err := gatherSources(args, cfg)
	if err != nil {
		return err
	}

	report := runAggregator(cmd, cfg, sources, withProbe, timeout, logger)

	switch format {
	case "json":
		return render.JSON(out, report)
	case "text":
		return render.Text(out, report)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// gatherSources resolves the declaration files to diagnose: explicit
// arguments win, otherwise the standard locations plus configured extras.
func gatherSources(args []string, cfg *config.Config) ([]mcpconfig.Source, error) {
	if len(args) > 0 {
		sources := make([]mcpconfig.Source, 0, len(args))
		for _, path := range args {
			src, err := mcpconfig.LoadFile(path)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
		return sources, nil
	}

	workDir, err := os.Getwd()
	if err != nil {
		workDir = ""
	}
	return mcpconfig.Locate(workDir, cfg.ExtraConfigPaths), nil
}

func runAggregator(cmd *cobra.Command, cfg *config.Config, sources []mcpconfig.Source, withProbe bool, timeout time.Duration, logger *logging.AppLogger) *diagnose.Report {
	var prober *probe.Prober
	if withProbe {
		if timeout <= 0 {
			timeout = cfg.ProbeTimeout()
		}
		prober = probe.New(timeout, logger)
	}

	return diagnose.New(prober, logger).Run(cmd.Context(), sources, diagnose.Options{Probe: withProbe})
}

func newServeCmd(logger *logging.AppLogger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diagnostics API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.ListenAddr = addr
			}

			return web.NewServer(cfg, logger).ListenAndServe()
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config)")
	return cmd
}
