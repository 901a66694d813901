package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every record",
		Long:  "Export every record in insertion order. The JSON output is accepted by import.",
		Run:   runExport,
	}

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	e, closeStore := openEngine(cmd)
	defer closeStore()

	entries, err := e.Export(cmd.Context(), caller())
	if err != nil {
		closeStore()
		exitErr("export", err)
	}

	render(cmd, entries, nil)
}
