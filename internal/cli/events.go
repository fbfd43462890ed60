package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Gu1nness/jhack/internal/recorder"
)

// EventSummary is one row of the events listing.
type EventSummary struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
	Memos     int    `json:"memos"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the events recorded in the database",
		Long: `List the recorded scenes: index, capture time and event name.

The index shown is the scene address to pass as the replay index.

Examples:
  jhack events --db ./event_db.json
  jhack events --db ./event_db.json --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(rootOpts, cmd)
		},
	}
}

func runEvents(opts *RootOptions, cmd *cobra.Command) error {
	data, err := recorder.Load(opts.Database)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to load event database", err)
	}

	summaries := make([]EventSummary, 0, len(data.Scenes))
	for i, scene := range data.Scenes {
		summaries = append(summaries, EventSummary{
			Index:     i,
			Name:      scene.Event.Name(),
			Timestamp: scene.Event.Timestamp,
			Memos:     len(scene.Context.Memos),
		})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(summaries, func(w io.Writer) {
		fmt.Fprintln(w, "Listing recorded events:")
		for _, s := range summaries {
			fmt.Fprintf(w, "\t(%d) %s :: %s (%d memos)\n", s.Index, s.Timestamp, s.Name, s.Memos)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(w, "\t<no events>")
		}
	})
}
