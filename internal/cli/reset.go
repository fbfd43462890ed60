package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Gu1nness/jhack/internal/recorder"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [idx...]",
		Short: "Reset replay cursors so scenes can be replayed again",
		Long: `Rewind the strict-memo replay cursors of every scene, or only of
the scenes named by index, so an already-replayed scene behaves
identically on the next pass.

Examples:
  jhack reset --db ./event_db.json
  jhack reset --db ./event_db.json 0 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			indices := make([]int, 0, len(args))
			for _, arg := range args {
				idx, err := strconv.Atoi(arg)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("invalid scene index %q", arg), err)
				}
				indices = append(indices, idx)
			}
			return runReset(rootOpts, cmd, indices)
		},
	}
}

func runReset(opts *RootOptions, cmd *cobra.Command, indices []int) error {
	if err := recorder.ResetCursors(opts.Database, indices...); err != nil {
		if recorder.IsBadConfig(err) {
			return WrapExitError(ExitCommandError, "failed to reset cursors", err)
		}
		return WrapExitError(ExitFailure, "failed to reset cursors", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	result := map[string]any{"reset": "ok", "scenes": indices}
	return formatter.Success(result, func(w io.Writer) {
		if len(indices) == 0 {
			fmt.Fprintln(w, "Reset replay cursors for all scenes.")
			return
		}
		fmt.Fprintf(w, "Reset replay cursors for scenes %v.\n", indices)
	})
}
