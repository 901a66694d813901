package cli

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset records to the default",
		Long:  "Reset one user (--user), every record with negative favour (--negative) or every record (--all).",
		Run:   runReset,
	}

	identityFlags(cmd, false)
	cmd.Flags().Bool("negative", false, "Reset every record with favour below zero")
	cmd.Flags().Bool("all", false, "Reset every record (irreversible)")

	RootCmd.AddCommand(cmd)
}

func runReset(cmd *cobra.Command, args []string) {
	user, _ := cmd.Flags().GetString("user")
	negative, _ := cmd.Flags().GetBool("negative")
	all, _ := cmd.Flags().GetBool("all")

	modes := 0
	for _, on := range []bool{user != "", negative, all} {
		if on {
			modes++
		}
	}
	if modes != 1 {
		exitErr("reset", errors.New("exactly one of --user, --negative or --all is required"))
	}

	e, closeStore := openEngine(cmd)
	defer closeStore()

	ctx, c := cmd.Context(), caller()
	var (
		n   int
		err error
	)
	switch {
	case all:
		n, err = e.ResetAll(ctx, c)
	case negative:
		n, err = e.ResetNegative(ctx, c)
	default:
		var ok bool
		if ok, err = e.Reset(ctx, c, identity(cmd)); ok {
			n = 1
		}
	}
	if err != nil {
		closeStore()
		exitErr("reset", err)
	}

	render(cmd, map[string]any{"ok": true, "reset": n}, func(w io.Writer) {
		fmt.Fprintf(w, "reset %d record(s)\n", n)
	})
}
