package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rcliao/favourpro/internal/affinity"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rank [count]",
		Short: "List the highest (or lowest) favour records",
		Args:  cobra.MaximumNArgs(1),
		Run:   runRank,
	}

	cmd.Flags().Bool("bottom", false, "List the lowest favour first")

	RootCmd.AddCommand(cmd)
}

func runRank(cmd *cobra.Command, args []string) {
	bottom, _ := cmd.Flags().GetBool("bottom")

	count := 10
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			exitErr("rank", errors.Wrapf(affinity.ErrInvalidCount, "%q", args[0]))
		}
		count = n
	}

	e, closeStore := openEngine(cmd)
	defer closeStore()

	rows, err := e.Rank(cmd.Context(), caller(), count, bottom)
	if err != nil {
		closeStore()
		exitErr("rank", err)
	}

	render(cmd, rows, func(w io.Writer) {
		for _, r := range rows {
			who := r.UserID
			if r.SessionID != "" {
				who = r.SessionID + "/" + r.UserID
			}
			fmt.Fprintf(w, "%3d. %-24s %s\n", r.Position, who, formatRecord(r.Record))
		}
	})
}
