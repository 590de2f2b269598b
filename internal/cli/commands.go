package cli

import (
	"errors"
	"fmt"

	"sitebuilder/internal/app"
	"sitebuilder/internal/grid"
	"sitebuilder/internal/publish"

	"github.com/spf13/cobra"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the page watcher and publish schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}
			return c.withApp(func(a *app.App) error {
				return a.Serve(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func (c *CLI) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the canvas tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				return a.ServeMCP(cmd.Context())
			})
		},
	}
}

func (c *CLI) gridCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grid <pageId>",
		Short: "Print the occupancy map of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				page, err := a.Site.GetPage(args[0])
				if err != nil {
					return fmt.Errorf("page %s: %w", args[0], err)
				}
				items, err := a.Canvas.Footprints(page.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s (%s)\n\n", page.Title, page.Slug)
				fmt.Fprint(c.out, grid.Render(items, grid.Columns, grid.Rows))
				return nil
			})
		},
	}
}

func (c *CLI) publishCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "publish [configId...]",
		Short: "Publish site documents to the configured target",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return errors.New("name at least one configuration or pass --all")
			}
			logger := loggerFromContext(cmd.Context())
			return c.withApp(func(a *app.App) error {
				p := newProgress(logger)
				if all {
					if err := a.Publish.PublishAll(cmd.Context()); err != nil {
						return err
					}
					p.done("published all configurations", "target", c.cfg.Publish.Kind)
					return nil
				}
				for _, id := range args {
					if err := a.Publish.Publish(cmd.Context(), id); err != nil {
						return err
					}
				}
				p.done("published", "configurations", len(args), "target", c.cfg.Publish.Kind)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "publish every configuration")
	return cmd
}

func (c *CLI) exportCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <configId> [file]",
		Short: "Write a site document to a file, or to stdout",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				if len(args) == 2 {
					if err := a.Publish.Export(args[0], args[1]); err != nil {
						return err
					}
					loggerFromContext(cmd.Context()).Info("exported", "configuration", args[0], "path", args[1])
					return nil
				}
				doc, err := a.Site.Document(args[0])
				if err != nil {
					return err
				}
				data, err := publish.Encode(doc, format)
				if err != nil {
					return err
				}
				_, err = c.out.Write(data)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "yaml", "stdout format: yaml or json")
	return cmd
}

func (c *CLI) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Store a site document from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				cfg, err := a.Publish.Import(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, cfg.ID)
				return nil
			})
		},
	}
}
