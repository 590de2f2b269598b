package cli

import (
	"fmt"
	"text/tabwriter"

	"sitebuilder/internal/app"
	"sitebuilder/internal/config"

	"github.com/spf13/cobra"
)

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage site configurations and the config file",
	}
	cmd.AddCommand(c.configInitCommand())
	cmd.AddCommand(c.configNewCommand())
	cmd.AddCommand(c.configListCommand())
	return cmd
}

func (c *CLI) configInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Write(c.configPath, c.cfg); err != nil {
				return err
			}
			fmt.Fprintln(c.out, c.configPath)
			return nil
		},
	}
}

func (c *CLI) configNewCommand() *cobra.Command {
	var description, template string
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a site configuration with a homepage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				cfg, err := a.Site.CreateConfiguration(cmd.Context(), args[0], description, template)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "configuration %s\nhomepage %s\n", cfg.ID, cfg.CurrentPageID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "configuration description")
	cmd.Flags().StringVar(&template, "template", "minimal", "template: minimal, crypto or classic")
	return cmd
}

func (c *CLI) configListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List site configurations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(func(a *app.App) error {
				configs, err := a.Site.ListConfigurations()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTEMPLATE\tPAGES")
				for _, cfg := range configs {
					pages, err := a.Site.ListPages(cfg.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", cfg.ID, cfg.Name, cfg.Template.ID, len(pages))
				}
				return tw.Flush()
			})
		},
	}
}
