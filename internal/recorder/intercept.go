package recorder

import (
	"fmt"

	"github.com/Gu1nness/jhack/internal/codec"
)

// DefaultNamespace is used for sites registered without one.
const DefaultNamespace = "<DEFAULT>"

// Site identifies one intercepted call site: a qualified name plus its
// caching discipline and serializer pair. Sites are static
// configuration, typically compiled from a registry file.
type Site struct {
	Namespace  string
	Name       string
	Policy     Policy
	Serializer codec.Pair
}

// QualifiedName is the memo key: "Namespace.Name".
func (s Site) QualifiedName() string {
	ns := s.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	return ns + "." + s.Name
}

// Func is the shape of an intercepted backend call. Args carries the
// positional arguments (without any receiver: the site's namespace
// stands in for it, and receivers never participate in argument
// identity) and kwargs the keyword arguments. Kwargs may be nil.
type Func func(args []any, kwargs map[string]any) (any, error)

// Intercept wraps the real backend call fn with record/replay
// memoization for the given site.
//
// In record mode every call invokes fn, then persists the serialized
// (input, output) pair in the current scene's memo; fn's errors
// propagate unchanged and are never memoized. In replay mode the memo
// of the configured scene is consulted instead; every recoverable
// mismatch (missing memo, exhausted cursor, diverged arguments) warns
// and falls through to the real call.
func (s *Session) Intercept(site Site, fn Func) Func {
	return func(args []any, kwargs map[string]any) (any, error) {
		s.banner()

		policy := CheckPolicy(site.Policy, s.log)
		pair := codec.CheckPair(site.Serializer, s.log)
		memoName := site.QualifiedName()

		if args == nil {
			args = []any{}
		}
		if kwargs == nil {
			kwargs = map[string]any{}
		}
		// Inputs are compared as one serialized (args, kwargs) tuple:
		// maps are never hashed directly.
		input := []any{args, kwargs}

		switch s.mode {
		case ModeRecord:
			return s.record(site, fn, memoName, policy, pair, args, kwargs, input)
		case ModeReplay:
			return s.replay(site, fn, memoName, policy, pair, args, kwargs, input)
		}
		return nil, &Error{Code: ErrCodeBadConfig, Message: fmt.Sprintf("invalid memo mode %q", s.mode)}
	}
}

func (s *Session) record(site Site, fn Func, memoName string, policy Policy, pair codec.Pair, args []any, kwargs map[string]any, input []any) (any, error) {
	output, err := fn(args, kwargs)
	if err != nil {
		// Failures are not memoized.
		return nil, err
	}

	// The real output doubles as the composite-push substitute: a
	// stream source was just consumed by the real call.
	serializedInput, err := codec.Encode(input, pair.Input, codec.Options{Substitute: output, Recording: true})
	if err != nil {
		return nil, fmt.Errorf("memoize %s: %w", memoName, err)
	}
	serializedOutput, err := codec.Encode(output, pair.Output, codec.Options{Recording: true})
	if err != nil {
		return nil, fmt.Errorf("memoize %s: %w", memoName, err)
	}

	err = Update(s.cfg.DBPath, func(data *Data) error {
		if len(data.Scenes) == 0 {
			return &Error{
				Code:    ErrCodeNoScenes,
				Message: "no scenes: cannot memoize before session setup",
				Path:    s.cfg.DBPath,
			}
		}
		scene := data.Scenes[len(data.Scenes)-1]
		memo := scene.memo(memoName)
		if memo == nil {
			memo = NewMemo(policy, pair)
		}
		memo.CacheCall(serializedInput, serializedOutput)
		scene.setMemo(memoName, memo)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if pair.Output == codec.Stream {
		// Encoding consumed the real stream; hand back a fresh one
		// over the recorded bytes.
		return codec.Decode(serializedOutput, codec.Stream)
	}
	return output, nil
}

func (s *Session) replay(site Site, fn Func, memoName string, policy Policy, pair codec.Pair, args []any, kwargs map[string]any, input []any) (any, error) {
	idx, err := s.cfg.replayIndex()
	if err != nil {
		return nil, err
	}

	propagate := func() (any, error) {
		s.logMemo(memoName, args, kwargs, "<propagated>", false)
		return fn(args, kwargs)
	}

	var result any
	err = Update(s.cfg.DBPath, func(data *Data) error {
		scene, ok := data.SceneAt(idx)
		if !ok {
			return &Error{
				Code:    ErrCodeBadConfig,
				Message: fmt.Sprintf("replay scene index %d out of range (%d scenes)", idx, len(data.Scenes)),
				Path:    s.cfg.DBPath,
			}
		}

		memo := scene.memo(memoName)
		if memo == nil {
			// The recorded session never hit this call site.
			s.log.Warn("no memo found for call site: this path must be new",
				"memo", memoName, "session", s.token)
			result, err = propagate()
			return err
		}

		if memo.Policy != policy || memo.Serializer != pair {
			// The recording is authoritative over the current code
			// configuration.
			s.log.Warn("stored memo params differ from the site configuration; falling back to stored",
				"memo", memoName,
				"stored_policy", string(memo.Policy), "site_policy", string(policy),
				"stored_serializer", memo.Serializer, "site_serializer", pair)
			policy = CheckPolicy(memo.Policy, s.log)
			pair = codec.CheckPair(memo.Serializer, s.log)
		}

		serializedInput, encErr := codec.Encode(input, pair.Input, codec.Options{})
		if encErr != nil {
			return fmt.Errorf("replay %s: %w", memoName, encErr)
		}

		if policy == PolicyStrict {
			call, nextErr := memo.NextStrict()
			if nextErr != nil {
				// More calls than were recorded: the path diverged.
				s.log.Warn("memo cursor out of bounds: this path must have diverged; propagating call",
					"memo", memoName, "cursor", memo.Cursor, "calls", memo.Len())
				result, err = propagate()
				return err
			}
			if call.Input != serializedInput {
				s.log.Warn("memoized arguments do not match the ones received at runtime; propagating call",
					"memo", memoName, "recorded", call.Input, "received", serializedInput)
				result, err = propagate()
				return err
			}
			s.logMemo(memoName, args, kwargs, call.Output, true)
			result, err = codec.Decode(call.Output, pair.Output)
			return err
		}

		output, lookErr := memo.LookupLoose(serializedInput)
		if lookErr != nil {
			s.log.Warn("no memo matches the arguments received at runtime; propagating call",
				"memo", memoName, "received", serializedInput)
			result, err = propagate()
			return err
		}
		s.logMemo(memoName, args, kwargs, output, true)
		result, err = codec.Decode(output, pair.Output)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// logMemo writes one lookup line: name, arguments and a truncated
// output preview. It goes straight to the plain memo writer so that a
// memoized logging backend cannot recurse into the interceptor.
func (s *Session) logMemo(name string, args []any, kwargs map[string]any, output string, hit bool) {
	const previewLen = 100
	preview := output
	trimmed := ""
	if runes := []rune(preview); len(runes) > previewLen {
		preview = string(runes[:previewLen])
		trimmed = "[...]"
	}
	tag := "miss"
	if hit {
		tag = "hit"
	}
	fmt.Fprintf(s.memoOut, "@memo[%s]: replaying %s(%v, %v)\n\t --> %s%s\n",
		tag, name, args, kwargs, preview, trimmed)
}
