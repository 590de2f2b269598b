// Package cli implements the sitebuilder command-line interface.
//
// The root command loads the TOML configuration (--config, default
// ~/.config/sitebuilder/config.toml) and installs a charmbracelet logger
// before any subcommand runs. --verbose forces debug logging.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"sitebuilder/internal/app"
	"sitebuilder/internal/config"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// CLI carries the state shared by every command.
type CLI struct {
	out        io.Writer
	logOut     io.Writer
	configPath string
	verbose    bool
	cfg        *config.Config
}

func newCLI(out, logOut io.Writer) *CLI {
	return &CLI{out: out, logOut: logOut}
}

// Execute runs the sitebuilder CLI with ctx.
func Execute(ctx context.Context) error {
	return newCLI(os.Stdout, os.Stderr).rootCommand().ExecuteContext(ctx)
}

func (c *CLI) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sitebuilder",
		Short:         "Grid-based site builder for crypto exchange websites",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.logOut)
	root.SetVersionTemplate(fmt.Sprintf("sitebuilder %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", config.DefaultPath(), "configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.gridCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.configCommand())
	return root
}

// setup loads the configuration and installs the logger.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level, err := charmlog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.verbose {
		level = charmlog.DebugLevel
	}
	logger := newLogger(c.logOut, level)
	charmlog.SetDefault(logger)
	cmd.SetContext(withLogger(cmd.Context(), logger))
	return nil
}

// withApp opens the application for the duration of fn.
func (c *CLI) withApp(fn func(a *app.App) error) error {
	a, err := app.New(c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
