package cmd

import (
	"fmt"
	"os"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"
)

// repoSlug identifies the GitHub repository releases are published to
const repoSlug = "giantswarm/mcp-reason"

// newSelfUpdateCmd creates the self-update subcommand
func newSelfUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selfupdate",
		Short: "Update mcp-reason to the latest release",
		Long:  `Check GitHub for a newer release of mcp-reason and replace the running binary with it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(repoSlug))
			if err != nil {
				return fmt.Errorf("failed to detect latest version: %w", err)
			}
			if !found {
				return fmt.Errorf("no release found for %s", repoSlug)
			}

			if latest.LessOrEqual(version) {
				fmt.Printf("Current version %s is already the latest\n", version)
				return nil
			}

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("could not locate executable: %w", err)
			}

			fmt.Printf("Updating %s -> %s...\n", version, latest.Version())
			if err := selfupdate.UpdateTo(ctx, latest.AssetURL, latest.AssetName, exe); err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			fmt.Printf("Successfully updated to %s\n", latest.Version())
			return nil
		},
	}
}
