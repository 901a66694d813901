package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/rcliao/favourpro/internal/affinity"
	"github.com/rcliao/favourpro/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Manually set favour, attitude or relationship",
		Run:   runSet,
	}

	identityFlags(cmd, true)
	cmd.Flags().String("favour", "", "New favour (integer, not clamped)")
	cmd.Flags().String("attitude", "", "New attitude")
	cmd.Flags().String("relationship", "", "New relationship")

	RootCmd.AddCommand(cmd)
}

func runSet(cmd *cobra.Command, args []string) {
	favour, _ := cmd.Flags().GetString("favour")
	attitude, _ := cmd.Flags().GetString("attitude")
	relationship, _ := cmd.Flags().GetString("relationship")
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	if !changed("favour") && !changed("attitude") && !changed("relationship") {
		exitErr("set", errors.New("one of --favour, --attitude or --relationship is required"))
	}
	// Reject bad input before anything is written.
	if changed("favour") {
		if _, err := strconv.Atoi(strings.TrimSpace(favour)); err != nil {
			exitErr("set favour", errors.Wrapf(affinity.ErrInvalidFavour, "%q", favour))
		}
	}
	if changed("attitude") && strings.TrimSpace(attitude) == "" {
		exitErr("set attitude", errors.Wrap(affinity.ErrEmptyValue, "attitude"))
	}
	if changed("relationship") && strings.TrimSpace(relationship) == "" {
		exitErr("set relationship", errors.Wrap(affinity.ErrEmptyValue, "relationship"))
	}

	e, closeStore := openEngine(cmd)
	defer closeStore()

	ctx, c, id := cmd.Context(), caller(), identity(cmd)
	var rec model.Record
	var err error
	if changed("favour") {
		if rec, err = e.SetFavour(ctx, c, id, favour); err != nil {
			closeStore()
			exitErr("set favour", err)
		}
	}
	if changed("attitude") {
		if rec, err = e.SetAttitude(ctx, c, id, attitude); err != nil {
			closeStore()
			exitErr("set attitude", err)
		}
	}
	if changed("relationship") {
		if rec, err = e.SetRelationship(ctx, c, id, relationship); err != nil {
			closeStore()
			exitErr("set relationship", err)
		}
	}

	render(cmd, rec, func(w io.Writer) {
		fmt.Fprintln(w, formatRecord(rec))
	})
}
