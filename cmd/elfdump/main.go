package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mpolitzer/elf/internal/checks"
	"github.com/mpolitzer/elf/internal/elfcore"
	"github.com/mpolitzer/elf/internal/mapping"
	"github.com/mpolitzer/elf/internal/report"
	"github.com/mpolitzer/elf/internal/utils"
)

// errChecksFailed is returned when the check report is not OK.
var errChecksFailed = errors.New("checks failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s%v\n", color.RedString("Error: "), err)
		os.Exit(1)
	}
}

// flagKeys maps command-line flags to the configuration keys they override.
var flagKeys = map[string]string{
	"log-level":      "log_level",
	"log-format":     "log_format",
	"format":         "output.format",
	"segments":       "output.segments",
	"words-per-line": "output.words_per_line",
	"color":          "output.color",
	"skip":           "checks.skip",
	"fail-on-warn":   "checks.fail_on_warn",
}

// app carries the state every subcommand shares once PersistentPreRunE has
// loaded the configuration.
type app struct {
	configFile string
	verbose    bool

	config *utils.Config
	logger *utils.Logger
}

func (a *app) setup(cmd *cobra.Command) error {
	manager := utils.NewConfigManager()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := manager.BindFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}
	if err := manager.LoadConfig(a.configFile); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.config = manager.GetConfig()

	loggerConfig := a.config.Logger()
	if a.verbose {
		loggerConfig.Level = utils.LogLevelDebug
	}
	loggerConfig.Output = cmd.ErrOrStderr()
	a.logger = utils.NewLogger(loggerConfig)
	manager.SetLogger(a.logger)

	cmd.SetContext(utils.WithLogger(cmd.Context(), a.logger))
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "elfdump",
		Short: "Read-only ELF structural decoder",
		Long: `elfdump decodes the structure of 32- and 64-bit ELF images in either byte
order: the file header, the section and program header tables and the
section-name string table. It never modifies the file.

Configuration is read from elfdump.yaml in the working directory,
$HOME/.elfdump or /etc/elfdump, from ELFDUMP_* environment variables and
from flags, later sources overriding earlier ones.`,
		Version:       utils.GetVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Configuration file path")
	cmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newDumpCmd(a))
	cmd.AddCommand(newCheckCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newDumpCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the header, sections and program headers of an ELF image",
		Long: `Print the file header, every section header with its resolved name and
every program header with its kind. With --segments the file image of each
segment is printed as 16-bit words in the image's byte order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, a, args[0])
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	cmd.Flags().BoolP("segments", "s", false, "Include segment contents as 16-bit words")
	cmd.Flags().Int("words-per-line", report.DefaultWordsPerLine, "Words per line in segment dumps")
	cmd.Flags().Bool("color", false, "Colorize text output")

	return cmd
}

func newCheckCmd(a *app) *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run structural checks against an ELF image",
		Long: `Run the structural checks against an ELF image:

  header           file header size and version match the class
  section-table    every section header record lies within the image
  program-table    every program header record lies within the image
  string-table     the section-name table and every name resolve
  section-extents  section contents lie within the image
  segment-extents  segment file images lie within the image
  program-kinds    program types are defined, PHDR/INTERP well placed
  entry-point      an executable's entry lies in an executable segment
  wx-segments      no LOAD segment is writable and executable

Exit codes:
  0 - No check failed
  1 - A check failed or errored, or the image could not be decoded`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecks(cmd, a, args[0], only)
		},
	}

	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	cmd.Flags().StringSlice("skip", nil, "Check IDs to skip")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Run only these check IDs")
	cmd.Flags().Bool("fail-on-warn", false, "Treat warnings as failures")
	cmd.Flags().Bool("color", false, "Colorize text output")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := utils.GetBuildInfo()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "elfdump version %s\n", info.Version)
			fmt.Fprintf(out, "Commit: %s\n", info.Commit)
			fmt.Fprintf(out, "Built: %s\n", info.Date)
			fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
		},
	}
}

// decodeFile maps path and hands the decoded image to fn while the mapping
// is alive.
func decodeFile(log *logrus.Entry, path string, fn func(*elfcore.File) error) error {
	return mapping.With(path, func(buf []byte) error {
		f, err := elfcore.Decode(buf)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.WithFields(logrus.Fields{
			"width":    f.Width().String(),
			"order":    f.ByteOrder().String(),
			"size":     f.Size(),
			"sections": f.SectionCount(),
			"programs": f.ProgramCount(),
		}).Debug("Decoded image")
		return fn(f)
	})
}

func runDump(cmd *cobra.Command, a *app, path string) error {
	log := utils.LoggerFromContext(cmd.Context()).WithComponent("dump").WithField("path", path)
	opts := report.Options{
		Segments:     a.config.Output.Segments,
		WordsPerLine: a.config.Output.WordsPerLine,
		Color:        a.config.Output.Color,
	}

	return decodeFile(log, path, func(f *elfcore.File) error {
		d, err := report.Build(path, f, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Debug("Writing dump")
		return writeDump(cmd.OutOrStdout(), a.config.Output.Format, d, opts)
	})
}

func writeDump(w io.Writer, format string, d *report.Dump, opts report.Options) error {
	switch format {
	case "json":
		return report.WriteJSON(w, d)
	case "text":
		return report.WriteText(w, d, opts)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func runChecks(cmd *cobra.Command, a *app, path string, only []string) error {
	logger := utils.LoggerFromContext(cmd.Context())
	log := logger.WithComponent("check").WithField("path", path)

	runner := checks.NewRunner(checks.NewDefaultRegistry(), logger)
	if err := runner.Skip(a.config.Checks.Skip...); err != nil {
		return err
	}

	return decodeFile(log, path, func(f *elfcore.File) error {
		target := &checks.Target{Path: path, File: f}

		var rep *checks.Report
		var err error
		if len(only) > 0 {
			rep, err = runner.RunSelected(target, only)
		} else {
			rep, err = runner.RunAll(target)
		}
		if err != nil {
			return fmt.Errorf("failed to run checks: %w", err)
		}

		if err := writeChecks(cmd.OutOrStdout(), a.config.Output.Format, rep, a.config.Output.Color); err != nil {
			return err
		}

		s := rep.Summary
		if !rep.OK(a.config.Checks.FailOnWarn) {
			log.Infof("Checks failed: %d failed, %d errors, %d warnings", s.Failed, s.Errors, s.Warned)
			return fmt.Errorf("%w: %d failed, %d errors, %d warnings", errChecksFailed, s.Failed, s.Errors, s.Warned)
		}
		log.Infof("Checks passed: %d/%d", s.Passed, s.Total)
		return nil
	})
}

func writeChecks(w io.Writer, format string, rep *checks.Report, useColor bool) error {
	switch format {
	case "json":
		return checks.WriteJSON(w, rep)
	case "text":
		return checks.WriteText(w, rep, useColor)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
