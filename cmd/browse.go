package cmd

import "github.com/spf13/cobra"

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Launch the full article browser",
	Long:  "Open irnews in browse mode, the two-pane article list with tag filters and search.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, true)
	},
}
