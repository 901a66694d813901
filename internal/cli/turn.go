package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "turn [reply]",
		Short: "Apply the marker in an assistant reply",
		Long: "Strip every state marker from the reply, apply the first one to the user's record and print the cleaned reply. " +
			"The reply can be a positional arg or piped via stdin.",
		Run: runTurn,
	}

	identityFlags(cmd, true)

	RootCmd.AddCommand(cmd)
}

func runTurn(cmd *cobra.Command, args []string) {
	text := readText(cmd, args)

	e, closeStore := openEngine(cmd)
	defer closeStore()

	res, err := e.Reconcile(cmd.Context(), identity(cmd), text)
	render(cmd, res, func(w io.Writer) {
		fmt.Fprintln(w, res.Text)
	})
	if err != nil {
		closeStore()
		exitErr("turn", err)
	}
}
