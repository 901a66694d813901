package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "prompt [system prompt]",
		Short: "Append the affinity context to a system prompt",
		Long:  "Append the user's current state and the update instructions to a system prompt read from args or stdin.",
		Run:   runPrompt,
	}

	identityFlags(cmd, true)
	cmd.Flags().String("name", "", "Display name of the user (default: user ID)")

	RootCmd.AddCommand(cmd)
}

func runPrompt(cmd *cobra.Command, args []string) {
	name, _ := cmd.Flags().GetString("name")
	system := readText(cmd, args)

	e, closeStore := openEngine(cmd)
	defer closeStore()

	out, err := e.InjectContext(cmd.Context(), identity(cmd), name, system)
	if err != nil {
		closeStore()
		exitErr("prompt", err)
	}

	render(cmd, map[string]string{"prompt": out}, func(w io.Writer) {
		fmt.Fprintln(w, out)
	})
}
