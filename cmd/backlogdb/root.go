package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/app"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/config"
)

// opener builds the application from a loaded configuration.
type opener func(ctx context.Context, cfg *config.Config) (*app.App, error)

func openApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	return app.Open(ctx, cfg)
}

// cli carries what every command shares.
type cli struct {
	configPath string
	open       opener
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "backlogdb",
		Short:         "Manage the anime backlog and recommendation graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(
		c.initCmd(),
		c.userCmd(),
		c.showCmd(),
		c.recommendCmd(),
		c.importMALCmd(),
	)
	return root
}

// run loads the configuration, opens the application and calls fn with it.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := c.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.WithoutCancel(ctx)) }()
	return fn(ctx, a)
}

func (c *cli) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Install the uniqueness constraints of the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Store.Setup(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Constraints installed.")
				return nil
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
