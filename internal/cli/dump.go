package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Gu1nness/jhack/internal/recorder"
)

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	all := false

	cmd := &cobra.Command{
		Use:   "dump [idx]",
		Short: "Dump one recorded scene, or the whole database",
		Long: `Dump a single scene as JSON (by default the last one), or the
whole database with --all. Negative indices count from the end.

Examples:
  jhack dump --db ./event_db.json
  jhack dump --db ./event_db.json 0
  jhack dump --db ./event_db.json --all`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			idx := -1
			if len(args) == 1 {
				parsed, err := strconv.Atoi(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("invalid scene index %q", args[0]), err)
				}
				idx = parsed
			}
			return runDump(rootOpts, cmd, idx, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "dump the whole database instead of one scene")
	return cmd
}

func runDump(opts *RootOptions, cmd *cobra.Command, idx int, all bool) error {
	data, err := recorder.Load(opts.Database)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load event database", err)
	}

	var payload any = data
	if !all {
		scene, ok := data.SceneAt(idx)
		if !ok {
			return NewExitError(ExitCommandError,
				fmt.Sprintf("scene index %d out of range (%d scenes)", idx, len(data.Scenes)))
		}
		payload = scene
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(payload, func(w io.Writer) {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.Encode(payload)
	})
}
