package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/app"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/models"
)

func (c *cli) showCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Read and add shows",
	}
	cmd.AddCommand(c.showAddCmd(), c.showExistsCmd())
	return cmd
}

func (c *cli) showAddCmd() *cobra.Command {
	var (
		malID    int64
		malURL   string
		altNames []string
	)
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Store a show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			show := models.Show{Name: args[0], MalAnimeID: malID, AltNames: altNames}
			if malURL != "" {
				show.MalURL = &malURL
			}
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				stored, err := a.Shows.AddShowToDatabase(ctx, show)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stored)
			})
		},
	}
	cmd.Flags().Int64Var(&malID, "mal-id", 0, "MyAnimeList anime id")
	cmd.Flags().StringVar(&malURL, "mal-url", "", "MyAnimeList page of the show")
	cmd.Flags().StringSliceVar(&altNames, "alt-name", nil, "alternative title (repeatable)")
	return cmd
}

func (c *cli) showExistsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exists [name]",
		Short: "Report whether a show is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				ok, err := a.Shows.CheckIfShowExistsByName(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(ok))
				return nil
			})
		},
	}
}

func (c *cli) recommendCmd() *cobra.Command {
	var (
		score   int
		comment string
	)
	cmd := &cobra.Command{
		Use:   "recommend [to] [from] [show]",
		Short: "Record that one user recommends a show to another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := models.Recommendation{Score: score, Comment: comment}
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Users.AddRecommendation(ctx, args[0], args[1], args[2], rec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s recommended %s to %s.\n", args[1], args[2], args[0])
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&score, "score", 0, "recommendation score")
	cmd.Flags().StringVar(&comment, "comment", "", "free text comment")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

func (c *cli) importMALCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-mal [user] [mal-user]",
		Short: "Copy a MyAnimeList plan-to-watch list into a user's backlog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				report, err := a.Importer.ImportPlanToWatch(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}
