package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show record statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	e, closeStore := openEngine(cmd)
	defer closeStore()

	stats, err := e.Stats(cmd.Context(), caller())
	if err != nil {
		closeStore()
		exitErr("stats", err)
	}

	render(cmd, stats, nil)
}
