package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagRebuildUser string

var rebuildCmd = &cobra.Command{
	Use:   "rebuild-roles",
	Short: "Rebuild cached team memberships",
	Long: `Rebuild the cached membership list from explicit grants, implicit
qualification and nested-team inheritance.

Memberships normally only rebuild at login. Run this after changing the
resolution settings or a team's external requirements so existing users
pick up the change without logging in again.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, closeFn, err := openEnv()
		if err != nil {
			return err
		}
		defer closeFn()

		ctx := cmd.Context()

		if flagRebuildUser != "" {
			if err := e.userSvc.RebuildUserMemberships(ctx, flagRebuildUser); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt memberships for user %s\n", flagRebuildUser)
			return nil
		}

		processed, err := e.userSvc.RebuildAllMemberships(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rebuilt memberships for %d users\n", processed)
		return nil
	},
}

func init() {
	rebuildCmd.Flags().StringVar(&flagRebuildUser, "user", "", "Rebuild a single user by id")
}
