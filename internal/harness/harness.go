package harness

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Gu1nness/jhack/internal/codec"
	"github.com/Gu1nness/jhack/internal/recorder"
)

// StepResult captures one executed step. Input and Output are
// canonical JSON, so equal values compare as equal strings.
type StepResult struct {
	Call   string
	Input  string
	Output string

	// Replayed is true when the step was served from the memo store
	// without invoking the scripted backend. Always false on the
	// record pass, where every call reaches the backend.
	Replayed bool
}

// Result is the outcome of running a scenario: both passes' step
// traces, how often the replay pass fell through to the backend, and
// the replay pass's memo log.
type Result struct {
	Scenario           string
	Record             []StepResult
	Replay             []StepResult
	ReplayBackendCalls int
	ReplayMemoLog      string
}

// scenarioClock is the pinned capture time for every scenario run.
var scenarioClock = func() time.Time {
	return time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
}

// Run executes the scenario: a record pass against the scripted
// backend followed by a replay pass over the same database. The
// database lives in a throwaway directory removed on return.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "memo-harness-*")
	if err != nil {
		return nil, fmt.Errorf("harness workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	dbPath := filepath.Join(dir, recorder.DefaultDBName)
	environ := func() []string {
		return []string{"JUJU_DISPATCH_PATH=hooks/" + scenario.Name}
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	sites := map[string]recorder.Site{}
	for _, spec := range scenario.Sites {
		site := spec.compile()
		sites[site.QualifiedName()] = site
	}

	result := &Result{Scenario: scenario.Name}

	// Record pass: every call reaches the scripted backend and is
	// memoized.
	recordCfg := recorder.Config{Mode: string(recorder.ModeRecord), DBPath: dbPath}
	recordSess := recorder.NewSession(recordCfg,
		recorder.WithClock(scenarioClock),
		recorder.WithEnviron(environ),
		recorder.WithMemoLog(io.Discard),
		recorder.WithLogger(quiet),
	)
	if err := recordSess.Setup(); err != nil {
		return nil, fmt.Errorf("record setup: %w", err)
	}

	for i, step := range scenario.Steps {
		input, err := stepInput(step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		output, err := invoke(recordSess, sites[step.Call], step, nil)
		if err != nil {
			return nil, fmt.Errorf("record steps[%d]: %w", i, err)
		}
		result.Record = append(result.Record, StepResult{
			Call:   step.Call,
			Input:  input,
			Output: output,
		})
	}

	// Replay pass: calls should be served from the store; any backend
	// invocation is a divergence.
	memoLog := &bytes.Buffer{}
	replayCfg := recorder.Config{Mode: string(recorder.ModeReplay), ReplayIdx: "0", DBPath: dbPath}
	replaySess := recorder.NewSession(replayCfg,
		recorder.WithClock(scenarioClock),
		recorder.WithEnviron(environ),
		recorder.WithMemoLog(memoLog),
		recorder.WithLogger(quiet),
	)
	if err := replaySess.Setup(); err != nil {
		return nil, fmt.Errorf("replay setup: %w", err)
	}

	replaySteps := scenario.Steps
	if len(scenario.ReplaySteps) > 0 {
		replaySteps = scenario.ReplaySteps
	}
	for i, step := range replaySteps {
		input, err := stepInput(step)
		if err != nil {
			return nil, fmt.Errorf("replay_steps[%d]: %w", i, err)
		}
		before := result.ReplayBackendCalls
		output, err := invoke(replaySess, sites[step.Call], step, &result.ReplayBackendCalls)
		if err != nil {
			return nil, fmt.Errorf("replay steps[%d]: %w", i, err)
		}
		result.Replay = append(result.Replay, StepResult{
			Call:     step.Call,
			Input:    input,
			Output:   output,
			Replayed: result.ReplayBackendCalls == before,
		})
	}

	result.ReplayMemoLog = memoLog.String()
	return result, nil
}

// invoke runs one step through an intercepted scripted backend and
// returns the canonical form of the output. A non-nil counter is
// incremented every time the backend itself is reached.
func invoke(sess *recorder.Session, site recorder.Site, step Step, counter *int) (string, error) {
	backend := func(args []any, kwargs map[string]any) (any, error) {
		if counter != nil {
			*counter++
		}
		return step.Returns, nil
	}
	output, err := sess.Intercept(site, backend)(step.Args, step.Kwargs)
	if err != nil {
		return "", err
	}
	canonical, err := codec.Encode(output, codec.JSON, codec.Options{})
	if err != nil {
		return "", fmt.Errorf("canonicalize output: %w", err)
	}
	return canonical, nil
}

// stepInput is the canonical (args, kwargs) tuple, the same identity
// the engine uses as cache key.
func stepInput(step Step) (string, error) {
	args := step.Args
	if args == nil {
		args = []any{}
	}
	kwargs := step.Kwargs
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return codec.Encode([]any{args, kwargs}, codec.JSON, codec.Options{})
}
