package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/config"
	criteria "github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain"
	"github.com/krew-solutions/ascetic-criteria-go/asceticddd/criteria/domain/coercion"
	"github.com/krew-solutions/ascetic-criteria-go/examples/catalog"
)

// RootOptions holds global flags and the state built from them before any
// subcommand runs.
type RootOptions struct {
	ConfigFile string
	Format     string // "json" | "text"
	Verbose    bool

	cfg     config.Config
	logger  *slog.Logger
	coercer *coercion.Coercer
}

var ValidFormats = []string{"text", "json"}

// entities are the types conditions can be checked against by name.
var entities = map[string]reflect.Type{
	"Product": reflect.TypeFor[catalog.Product](),
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "criteriactl",
		Short: "Inspect, validate and run serialized criteria",
		Long: `criteriactl works with condition trees in their JSON or YAML wire form.

Configuration comes from CRITERIA_* environment variables, an optional .env
file, or the file given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (yaml, json or env)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewFilterCommand(opts))
	cmd.AddCommand(NewSampleCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

func (o *RootOptions) setup(stderr io.Writer) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}

	var files []string
	if o.ConfigFile != "" {
		files = append(files, o.ConfigFile)
	}
	cfg, err := config.FromEnv(files...)
	if err != nil {
		return err
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := cfg.Log.Logger(stderr)
	if err != nil {
		return err
	}
	coercer, err := cfg.Coercion.Coercer(logger)
	if err != nil {
		return err
	}
	o.cfg, o.logger, o.coercer = cfg, logger, coercer
	return nil
}

func (o *RootOptions) criteriaOptions(extra ...criteria.Option) []criteria.Option {
	opts := []criteria.Option{criteria.WithLogger(o.logger), criteria.WithCoercer(o.coercer)}
	return append(opts, extra...)
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
