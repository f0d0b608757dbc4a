package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/app"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/apperror"
	"github.com/saulfrancisco-ruizacevedo/go-backlogdb/models"
)

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Read and change users",
	}
	cmd.AddCommand(
		c.userShowCmd(),
		c.userAddCmd(),
		c.userBacklogCmd(),
		c.userRecsCmd(),
		c.userPasswdCmd(),
		c.userLoginCmd(),
		c.userFriendCmd(),
		c.userQueueCmd(),
		c.userReorderCmd(),
	)
	return cmd
}

func (c *cli) userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Print a user's profile with backlog, recommendations and friends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				profile, err := a.Users.GetUserInfoByName(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), profile)
			})
		},
	}
}

func (c *cli) userAddCmd() *cobra.Command {
	var (
		pass        string
		malUser     string
		twitterID   string
		malVerified bool
	)
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := models.NewUser{Name: args[0]}
			if cmd.Flags().Changed("mal-verified") {
				user.MalVerified = models.BoolPtr(malVerified)
			}
			if pass != "" {
				user.SignIn = &models.SignIn{Password: pass}
			}
			if twitterID != "" {
				user.TwitterSignIn = &models.TwitterSignIn{TwitterID: twitterID}
			}
			if malUser != "" {
				user.MAL = &models.MALAccount{MalUserName: malUser}
			}
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				if _, err := a.Users.AddUser(ctx, user); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added user %s.\n", user.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pass, "password", "", "initial password")
	cmd.Flags().StringVar(&malUser, "mal-user", "", "linked MyAnimeList user name")
	cmd.Flags().StringVar(&twitterID, "twitter-id", "", "linked Twitter id")
	cmd.Flags().BoolVar(&malVerified, "mal-verified", false, "mark the MyAnimeList link as verified")
	return cmd
}

func (c *cli) userBacklogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backlog [name]",
		Short: "Print a user's backlog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				backlog, err := a.Users.GetUserBacklog(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), backlog)
			})
		},
	}
}

func (c *cli) userRecsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recs [name]",
		Short: "Print the recommendations a user has made",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				recs, err := a.Users.GetRecommendationsCreatedByUser(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), recs)
			})
		},
	}
}

func (c *cli) userPasswdCmd() *cobra.Command {
	var oldPass, newPass string
	cmd := &cobra.Command{
		Use:   "passwd [name]",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				ok, err := a.Users.SetUserPassword(ctx, args[0], oldPass, newPass)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("current password for %s did not match", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&oldPass, "old", "", "current password")
	cmd.Flags().StringVar(&newPass, "new", "", "new password")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}

func (c *cli) userLoginCmd() *cobra.Command {
	var pass string
	cmd := &cobra.Command{
		Use:   "login [name]",
		Short: "Check a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				ok, err := a.Users.ValidateUserLogin(ctx, args[0], pass)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(ok))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pass, "password", "", "password to check")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) userFriendCmd() *cobra.Command {
	var viaMAL bool
	cmd := &cobra.Command{
		Use:   "friend [name] [friend]",
		Short: "Make two users friends",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Users.AddFriend(ctx, args[0], args[1], viaMAL); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s and %s are now friends.\n", args[0], args[1])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&viaMAL, "mal-import", false, "record the friendship as imported from MyAnimeList")
	return cmd
}

func (c *cli) userQueueCmd() *cobra.Command {
	var score int
	cmd := &cobra.Command{
		Use:   "queue [name] [show]",
		Short: "Add a stored show to a user's backlog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Users.AddShowToBacklog(ctx, args[0], args[1], score); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s's backlog.\n", args[1], args[0])
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&score, "score", 0, "personal score for the show")
	return cmd
}

func (c *cli) userReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder [name] [show=order]...",
		Short: "Set the order of shows in a user's backlog",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := parseOrders(args[1:])
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Users.UpdateUserBacklogOrdering(ctx, args[0], orders); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d shows.\n", len(orders))
				return nil
			})
		},
	}
}

// parseOrders reads "show=order" pairs. The show name may itself contain '='.
func parseOrders(pairs []string) ([]models.BacklogOrder, error) {
	orders := make([]models.BacklogOrder, 0, len(pairs))
	for _, p := range pairs {
		i := strings.LastIndex(p, "=")
		if i <= 0 {
			return nil, apperror.Newf(apperror.CodeInvalidPayload, "Expected show=order, got '%s'", p)
		}
		n, err := strconv.Atoi(p[i+1:])
		if err != nil {
			return nil, apperror.Wrap(apperror.CodeInvalidPayload, fmt.Sprintf("Order for '%s' is not a number", p[:i]), err)
		}
		orders = append(orders, models.BacklogOrder{Name: p[:i], Order: n})
	}
	return orders, nil
}
