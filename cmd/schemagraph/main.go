package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/shopmonkeyus/go-common/logger"
	"github.com/spf13/cobra"
	"github.com/tordrt/schemagraph"
	"github.com/tordrt/schemagraph/internal/config"
	"github.com/tordrt/schemagraph/internal/formatter"
	"github.com/tordrt/schemagraph/internal/schema"
)

var (
	configFile     string
	envFile        string
	dbURL          string
	outputFile     string
	outputDir      string
	tables         string
	exclude        string
	schemaName     string
	group          string
	format         string
	splitThreshold int
	quiet          bool
)

var (
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "schemagraph",
	Short: "Build a table/relation graph of a database schema",
	Long: `SchemaGraph drafts a schema from PostgreSQL, MySQL or SQLite catalogs, definition files or Go models,
archives it, and outputs it in a compact, token-efficient format. Without a subcommand it returns the
current schema through the configured automation (read, then draft).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, s *schemagraph.Session) error {
			c, err := s.Get(ctx)
			if err != nil {
				return err
			}
			if c == nil {
				return nil
			}
			return write(c)
		})
	},
}

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft a fresh schema from the configured sources and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, s *schemagraph.Session) error {
			s.Draft(ctx)
			c := s.Current()
			if c == nil {
				return fmt.Errorf("no draft source produced a schema")
			}
			return write(c)
		})
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Draft a schema and archive it with the configured handlers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, s *schemagraph.Session) error {
			s.Draft(ctx)
			c := s.Current()
			if c == nil {
				return fmt.Errorf("no draft source produced a schema")
			}
			ok, err := s.Archive(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("one or more archive handlers failed")
			}
			fmt.Fprintf(os.Stderr, "%s %d tables\n", green("archived"), len(c.Names()))
			return nil
		})
	},
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the archived schema and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, s *schemagraph.Session) error {
			s.Read(ctx, nil)
			c := s.Current()
			if c == nil {
				return fmt.Errorf("nothing archived for group %s", s.Config().Group)
			}
			return write(c)
		})
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Config file (toml, yaml or json)")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before the config")
	flags.StringVar(&dbURL, "db-url", "", "Database URL (postgres://, mysql:// or sqlite://)")
	flags.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	flags.StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	flags.StringVarP(&tables, "tables", "t", "", "Specific tables (comma-separated, optional)")
	flags.StringVar(&exclude, "exclude", "", "Tables to skip (comma-separated, optional)")
	flags.StringVarP(&schemaName, "schema", "s", "", "Database schema name (default: public for PostgreSQL)")
	flags.StringVarP(&group, "group", "g", "", "Connection group archives are keyed on")
	flags.StringVarP(&format, "format", "f", formatter.FormatText, "Output format: text or markdown")
	flags.IntVar(&splitThreshold, "split-threshold", 0, "Split into multiple files when table count exceeds this (requires --output-dir)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Do not print warnings")

	rootCmd.AddCommand(draftCmd, archiveCmd, readCmd)
}

// loadConfig reads the config and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{ConfigFile: configFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if schemaName != "" {
		cfg.Database.Schema = schemaName
	}
	if list := parseTableList(tables); len(list) > 0 {
		cfg.Database.Tables = list
	}
	if list := parseTableList(exclude); len(list) > 0 {
		cfg.Database.Exclude = list
	}
	if group != "" {
		cfg.Group = group
	}
	return cfg, nil
}

func withSession(ctx context.Context, fn func(context.Context, *schemagraph.Session) error) error {
	if outputDir != "" && outputFile != "" {
		return fmt.Errorf("cannot use both --output-dir and --output flags")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger()
	session, err := schemagraph.Open(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			printWarning(fmt.Errorf("failed to close session: %w", err))
		}
	}()

	err = fn(ctx, session)
	for _, e := range session.Errors() {
		printWarning(e)
	}
	return err
}

func printWarning(err error) {
	if quiet {
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", yellow("warning:"), err)
}

// write formats the schema to the output selected by the flags
func write(c schema.TableContainer) error {
	// Check if we should use multi-file output
	shouldSplit := outputDir != "" && (splitThreshold == 0 || len(c.Names()) > splitThreshold)
	if shouldSplit {
		if err := schemagraph.FormatSchema(c, &schemagraph.OutputOptions{OutputDir: outputDir, Format: format}); err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		return nil
	}

	var writer io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				printWarning(fmt.Errorf("failed to close output file: %w", err))
			}
		}()
		writer = f
	}

	if err := schemagraph.FormatSchema(c, &schemagraph.OutputOptions{Writer: writer, Format: format}); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

func parseTableList(s string) []string {
	if s == "" {
		return nil
	}
	list := strings.Split(s, ",")
	for i, t := range list {
		list[i] = strings.TrimSpace(t)
	}
	return list
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
