package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Gu1nness/jhack/internal/recorder"
	"github.com/Gu1nness/jhack/internal/registry"
)

// SiteSummary is the JSON payload describing one compiled call site.
type SiteSummary struct {
	Site   string `json:"site"`
	Policy string `json:"caching_policy"`
	Input  string `json:"input_serializer"`
	Output string `json:"output_serializer"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <registry-dir>",
		Short: "Compile an interception registry and report its call sites",
		Long: `Compile the CUE files in a registry directory and list the call
sites they declare. Compile errors exit with status 1; a missing or
unreadable directory exits with status 2.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd, args[0])
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command, dir string) error {
	sites, err := registry.Load(dir)
	if err != nil {
		var compileErr *registry.CompileError
		if errors.As(err, &compileErr) {
			return WrapExitError(ExitFailure, "registry compilation failed", err)
		}
		return WrapExitError(ExitCommandError, "failed to load registry", err)
	}

	summaries := make([]SiteSummary, 0, len(sites))
	for _, site := range sites {
		summaries = append(summaries, summarizeSite(site))
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(summaries, func(w io.Writer) {
		fmt.Fprintf(w, "Registry %s compiled: %d site(s)\n", dir, len(summaries))
		for _, s := range summaries {
			fmt.Fprintf(w, "\t%s [%s] %s -> %s\n", s.Site, s.Policy, s.Input, s.Output)
		}
	})
}

func summarizeSite(site recorder.Site) SiteSummary {
	return SiteSummary{
		Site:   site.QualifiedName(),
		Policy: string(site.Policy),
		Input:  string(site.Serializer.Input),
		Output: string(site.Serializer.Output),
	}
}
