package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	figmaassets "github.com/hellenic-development/figma-assets"
	"github.com/hellenic-development/figma-assets/pkg/config"
	"github.com/hellenic-development/figma-assets/pkg/figma"
	"github.com/hellenic-development/figma-assets/pkg/formatter"
	"github.com/hellenic-development/figma-assets/pkg/locator"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = figma.Version

var (
	errAssetsFailed = errors.New("some assets could not be saved")
	errLookupFailed = errors.New("asset lookup failed")
)

type cliFlags struct {
	configFile string
	envFile    string
	token      string
	file       string
	page       string
	frame      string
	nodeIDs    string
	out        string
	format     string
	scale      float64
	report     string
	logLevel   string
	strict     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	return buildRootCmd(&cliFlags{}, stdout, stderr)
}

func buildRootCmd(flags *cliFlags, stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "figma-assets",
		Short: "Download icons and images from a Figma page",
		Long: "Locates the exportable nodes of a page (optionally a frame) in a Figma file, " +
			"renders them through the Figma API and saves them as <out>/<name>.<format>.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags, stdout, stderr)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "YAML config file (default ./"+config.DefaultConfigFile+" if present)")
	pf.StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "dotenv file loaded into the environment when present")
	pf.StringVarP(&flags.token, "token", "t", "", "Figma Personal Access Token (or FIGMA_TOKEN)")
	pf.StringVarP(&flags.file, "file", "f", "", "Figma file key or URL (or FIGMA_FILE_KEY)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (or LOG_LEVEL, default info)")

	f := rootCmd.Flags()
	f.StringVarP(&flags.page, "page", "p", "", "Name of the page holding the assets (or FIGMA_PAGE)")
	f.StringVar(&flags.frame, "frame", "", "Optional frame on the page to export from (or FIGMA_FRAME)")
	f.StringVarP(&flags.nodeIDs, "node-ids", "n", "", "Comma-separated node IDs passed to the file request")
	f.StringVarP(&flags.out, "out", "o", figmaassets.DefaultAssetsPath, "Directory the assets are written to (or FIGMA_ASSETS_PATH)")
	f.StringVar(&flags.format, "format", figmaassets.DefaultFormat, "Image format: svg, png, jpg, pdf (or FIGMA_FORMAT)")
	f.Float64Var(&flags.scale, "scale", figmaassets.DefaultScale, "Render scale, positive (or FIGMA_SCALE)")
	f.StringVar(&flags.report, "report", "", "Write a markdown export report to this file")
	f.BoolVar(&flags.strict, "strict", false, "Exit with an error when the page cannot be located or rendered")

	pagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "List the pages of a Figma file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPages(cmd, flags, stdout, stderr)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "figma-assets version %s\n", version)
		},
	}

	rootCmd.AddCommand(pagesCmd, versionCmd)

	return rootCmd
}

// loadConfig merges the config sources with the flags the user actually set.
func loadConfig(cmd *cobra.Command, flags *cliFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configFile, flags.envFile)
	if err != nil {
		return cfg, err
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("token") {
		cfg.Token = flags.token
	}
	if changed("file") {
		cfg.File = flags.file
	}
	if changed("page") {
		cfg.Page = flags.page
	}
	if changed("frame") {
		cfg.Frame = flags.frame
	}
	if changed("node-ids") {
		cfg.NodeIDs = config.SplitList(flags.nodeIDs)
	}
	if changed("out") {
		cfg.AssetsPath = flags.out
	}
	if changed("format") {
		cfg.Format = flags.format
	}
	if changed("scale") {
		cfg.Scale = flags.scale
	}

	// Node IDs embedded in a Figma URL are used when none were given explicitly.
	if len(cfg.NodeIDs) == 0 {
		if ids, err := figma.ExtractNodeIDs(cfg.File); err == nil && len(ids) > 0 {
			cfg.NodeIDs = ids
		}
	}

	return cfg, cfg.Validate()
}

func runExport(cmd *cobra.Command, flags *cliFlags, stdout, stderr io.Writer) error {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, flags.logLevel)

	cyan.Fprintln(stdout, "\n🎨 Figma Asset Exporter")
	cyan.Fprintln(stdout, "=======================")
	cyan.Fprintln(stdout)

	result, err := figmaassets.Run(cmd.Context(), cfg.Options(logger), cfg.NodeIDs)
	if err != nil {
		return err
	}

	opts := result.Options
	cyan.Fprintln(stdout, "📊 Export Summary:")
	fmt.Fprintf(stdout, "  • Page: %s\n", opts.PageName)
	if opts.FrameName != "" {
		fmt.Fprintf(stdout, "  • Frame: %s\n", opts.FrameName)
	}
	fmt.Fprintf(stdout, "  • Located: %d\n", len(result.Lookup.Assets))
	fmt.Fprintf(stdout, "  • Saved: %d\n", len(result.Report.Saved()))

	failed := result.Report.Failed()
	if len(failed) > 0 {
		red.Fprintf(stdout, "  • Failed: %d\n", len(failed))
		for _, o := range failed {
			red.Fprintf(stdout, "    ✗ %s: %v\n", o.Name, o.Err)
		}
	}

	if flags.report != "" {
		green.Fprintf(stdout, "\n💾 Writing report to %s... ", flags.report)
		if err := os.WriteFile(flags.report, []byte(formatter.ToMarkdown(result)), 0644); err != nil {
			red.Fprintln(stdout, "✗")
			return fmt.Errorf("write report: %w", err)
		}
		green.Fprintln(stdout, "✓")
	}

	if flags.strict {
		if result.Lookup.Status == locator.StatusError {
			return fmt.Errorf("%w: %v", errLookupFailed, result.Lookup.Err)
		}
		if len(result.Lookup.Assets) > 0 && len(result.Exports) == 0 {
			return fmt.Errorf("%w: render request failed", errLookupFailed)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d", errAssetsFailed, len(failed), len(result.Report.Outcomes))
	}

	green.Fprintf(stdout, "\n✨ Exported %d asset(s) to %s\n\n", len(result.Report.Saved()), opts.AssetsPath)
	return nil
}

func runPages(cmd *cobra.Command, flags *cliFlags, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	exporter, err := figmaassets.New(cfg.Options(newLogger(stderr, flags.logLevel)))
	if err != nil {
		return err
	}

	pages, err := exporter.Pages(cmd.Context())
	if err != nil {
		return err
	}

	for _, p := range pages {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

// newLogger builds the logrus logger handed to the exporter. The level comes from
// the --log-level flag, then LOG_LEVEL, then defaults to info.
func newLogger(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	logger.SetLevel(parseLogLevel(level))

	return logger
}

func parseLogLevel(s string) logrus.Level {
	if s == "" {
		return logrus.InfoLevel
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
