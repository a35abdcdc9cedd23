// Package cli implements the pantry command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/backend"
	"github.com/mesh-intelligence/pantry/internal/config"
	"github.com/mesh-intelligence/pantry/internal/entity"
	pantrylog "github.com/mesh-intelligence/pantry/internal/log"
	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Output formats.
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	output    string
	logLevel  string
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	flags    rootFlags
	cfg      types.Config
	logger   *slog.Logger
	logClose io.Closer
}

// userError marks failures caused by the command line rather than the
// system; they exit with exitUserError.
type userError struct{ err error }

func (e userError) Error() string { return e.err.Error() }
func (e userError) Unwrap() error { return e.err }

func userErrorf(format string, args ...any) error {
	return userError{fmt.Errorf(format, args...)}
}

// NewRootCmd creates the top-level "pantry" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pantry",
		Short: "Store and query users and products through a pluggable record mapper",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logClose != nil {
				return a.logClose.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: memory, sqlite, postgres, redis")
	pf.StringVarP(&a.flags.output, "output", "o", outputJSON, "output format: json or yaml")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newSetCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newServeCmd(a))
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pantry:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

func exitCode(err error) int {
	var ue userError
	switch {
	case err == nil:
		return exitSuccess
	case errors.As(err, &ue),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrUnknownField),
		errors.Is(err, types.ErrInvalidData):
		return exitUserError
	default:
		return exitSysError
	}
}

// setup loads the configuration, applies flag overrides, and builds the
// logger.
func (a *app) setup() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := config.Viper(configDir)
	if err != nil {
		return err
	}
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	if a.flags.backend != "" {
		cfg.Backend = a.flags.backend
	}
	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
	cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return userErrorf("invalid config: %w", err)
	}
	if a.flags.output != outputJSON && a.flags.output != outputYAML {
		return userErrorf("unknown output format %q (valid: json, yaml)", a.flags.output)
	}

	logger, closer, err := pantrylog.New(pantrylog.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		File:    cfg.LogFile,
		Schemas: entity.Schemas(),
	})
	if err != nil {
		return userErrorf("configure logging: %w", err)
	}
	a.cfg, a.logger, a.logClose = cfg, logger, closer
	return nil
}

// open connects to the configured backend and binds the entity kinds to it.
// The caller must close the returned closer.
func (a *app) open(ctx context.Context) (*entity.Registry, io.Closer, error) {
	gw, closer, err := backend.Open(ctx, a.cfg, entity.Schemas()...)
	if err != nil {
		return nil, nil, err
	}
	reg, err := entity.NewRegistry(gw, a.logger)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	a.logger.DebugContext(ctx, "backend opened", "backend", a.cfg.Backend, "data_dir", a.cfg.DataDir)
	return reg, closer, nil
}

func (a *app) kind(reg *entity.Registry, name string) (entity.Kind, error) {
	k, ok := reg.Kind(name)
	if !ok {
		return entity.Kind{}, userErrorf("unknown kind %q (valid: %v)", name, reg.Names())
	}
	return k, nil
}
