package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/favourpro/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a user's affinity record",
		Run:   runGet,
	}

	identityFlags(cmd, true)
	cmd.Flags().Bool("history", false, "Show past revisions (sqlite backend)")
	cmd.Flags().IntP("limit", "l", 20, "Max revisions with --history")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	history, _ := cmd.Flags().GetBool("history")
	limit, _ := cmd.Flags().GetInt("limit")
	id := identity(cmd)

	e, closeStore := openEngine(cmd)
	defer closeStore()

	if history {
		revs, err := e.History(cmd.Context(), caller(), id, limit)
		if err != nil {
			closeStore()
			exitErr("history", err)
		}
		render(cmd, revs, func(w io.Writer) {
			for _, r := range revs {
				fmt.Fprintf(w, "%-16s %s\n", humanize.Time(r.CreatedAt), formatRecord(r.Record))
			}
		})
		return
	}

	rec, err := e.Query(cmd.Context(), caller(), id)
	if err != nil {
		closeStore()
		exitErr("get", err)
	}
	render(cmd, rec, func(w io.Writer) {
		fmt.Fprintln(w, formatRecord(rec))
	})
}

func formatRecord(r model.Record) string {
	return fmt.Sprintf("favour=%d attitude=%q relationship=%q", r.Favour, r.Attitude, r.Relationship)
}
