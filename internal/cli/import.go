package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rcliao/favourpro/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from JSON",
		Long:  "Import records from JSON on stdin: either the array produced by export or a JSON state file.",
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		exitErr("read stdin", err)
	}

	entries, err := store.DecodeEntries(data)
	if err != nil {
		exitErr("parse input", err)
	}

	e, closeStore := openEngine(cmd)
	defer closeStore()

	imported, err := e.Import(cmd.Context(), caller(), entries)
	if err != nil {
		closeStore()
		exitErr("import", err)
	}

	render(cmd, map[string]any{"ok": true, "imported": imported}, func(w io.Writer) {
		fmt.Fprintf(w, "imported %d record(s)\n", imported)
	})
}
