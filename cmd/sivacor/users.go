package main

import (
	"github.com/spf13/cobra"
)

func userCmd(c *cli) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Inspect users",
	}

	var listJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			stop := c.spin("Fetching users...")
			users, err := a.Users.List(cmd.Context())
			stop()
			if err != nil {
				return err
			}
			p := c.printer()
			if listJSON {
				return p.JSON(users)
			}
			p.Users(users)
			return nil
		},
	}
	list.Flags().BoolVar(&listJSON, "json", false, "Output user list in JSON format")

	var searchJSON bool
	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Find exactly one user by name, login or email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			u, err := c.resolveUser(cmd.Context(), a, args[0])
			if err != nil {
				return err
			}
			if searchJSON {
				return c.printer().JSON(u)
			}
			c.okf("%s %s", u.Identity(), c.ui.dim(u.ID))
			return nil
		},
	}
	search.Flags().BoolVar(&searchJSON, "json", false, "Output the user in JSON format")

	user.AddCommand(list, search)
	return user
}
