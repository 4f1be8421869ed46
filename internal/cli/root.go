package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "larder",
	Short: "Single-user nutrition tracker",
	Long:  "Larder tracks food items, recipes, daily logs, and exercise, keeping every derived nutrition total consistent. Single Go binary, local SQLite database.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(foodsCmd)
	rootCmd.AddCommand(recipesCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(recalcCmd)
}
