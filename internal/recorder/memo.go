package recorder

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Gu1nness/jhack/internal/codec"
)

// Policy is the caching discipline of one memo.
type Policy string

const (
	// PolicyStrict replays calls in recorded order through a cursor:
	// the call site may return different results every time it is
	// invoked, regardless of arguments.
	PolicyStrict Policy = "strict"

	// PolicyLoose replays by direct input lookup: results depend only
	// on the arguments, never on call order.
	PolicyLoose Policy = "loose"
)

// CheckPolicy validates a caching policy, defaulting to strict with a
// warning on an invalid value. A nil logger means slog.Default.
func CheckPolicy(p Policy, log *slog.Logger) Policy {
	switch p {
	case PolicyStrict, PolicyLoose:
		return p
	}
	if log == nil {
		log = slog.Default()
	}
	log.Warn("invalid caching policy; defaulting to strict", "policy", string(p))
	return PolicyStrict
}

// Call is one recorded (serialized input, serialized output) pair.
type Call struct {
	Input  string
	Output string
}

// Memo is the cache for a single intercepted call site.
//
// Exactly one of Strict/Loose is populated, per Policy. Cursor marks
// the next strict pair to consult on replay and is meaningless for
// loose memos (persisted as "n/a").
type Memo struct {
	Policy     Policy
	Serializer codec.Pair
	Strict     []Call
	Loose      map[string]string
	Cursor     int
}

// NewMemo creates an empty memo for a call site. Loose memos start
// with an empty mapping instead of an empty sequence.
func NewMemo(policy Policy, serializer codec.Pair) *Memo {
	m := &Memo{Policy: CheckPolicy(policy, nil), Serializer: serializer}
	if m.Policy == PolicyLoose {
		m.Loose = map[string]string{}
	}
	return m
}

// CacheCall records one call: strict appends, loose overwrites the
// entry keyed by the serialized input (last write wins).
func (m *Memo) CacheCall(input, output string) {
	if m.Policy == PolicyLoose {
		if m.Loose == nil {
			m.Loose = map[string]string{}
		}
		m.Loose[input] = output
		return
	}
	m.Strict = append(m.Strict, Call{Input: input, Output: output})
}

// NextStrict returns the recorded pair at the cursor and advances it.
// The cursor advances on every lookup attempt; whether the input
// matches is the caller's concern. Returns ErrCursorExhausted when the
// cursor is past the recorded calls.
func (m *Memo) NextStrict() (Call, error) {
	if m.Cursor >= len(m.Strict) {
		return Call{}, fmt.Errorf("%w: cursor %d, %d recorded calls", ErrCursorExhausted, m.Cursor, len(m.Strict))
	}
	call := m.Strict[m.Cursor]
	m.Cursor++
	return call, nil
}

// LookupLoose returns the output recorded for the serialized input, or
// ErrCallNotFound.
func (m *Memo) LookupLoose(input string) (string, error) {
	output, ok := m.Loose[input]
	if !ok {
		return "", ErrCallNotFound
	}
	return output, nil
}

// Len reports the number of recorded calls.
func (m *Memo) Len() int {
	if m.Policy == PolicyLoose {
		return len(m.Loose)
	}
	return len(m.Strict)
}

// ResetCursor rewinds a strict memo so its scene can be replayed again.
func (m *Memo) ResetCursor() {
	m.Cursor = 0
}

// cursorNA is the persisted cursor sentinel for loose memos.
const cursorNA = "n/a"

// memoJSON is the persisted shape of a memo:
//
//	{
//	  "calls": [[input, output], ...] | {input: output, ...},
//	  "cursor": <int> | "n/a",
//	  "caching_policy": "strict" | "loose",
//	  "serializer": [<input tag>, <output tag>]
//	}
type memoJSON struct {
	Calls         json.RawMessage `json:"calls"`
	Cursor        json.RawMessage `json:"cursor"`
	CachingPolicy Policy          `json:"caching_policy"`
	Serializer    json.RawMessage `json:"serializer"`
}

// MarshalJSON implements the persisted memo schema.
func (m *Memo) MarshalJSON() ([]byte, error) {
	out := struct {
		Calls         any       `json:"calls"`
		Cursor        any       `json:"cursor"`
		CachingPolicy Policy    `json:"caching_policy"`
		Serializer    [2]string `json:"serializer"`
	}{
		CachingPolicy: m.Policy,
		Serializer:    [2]string{string(m.Serializer.Input), string(m.Serializer.Output)},
	}
	if m.Policy == PolicyLoose {
		loose := m.Loose
		if loose == nil {
			loose = map[string]string{}
		}
		out.Calls = loose
		out.Cursor = cursorNA
	} else {
		calls := make([][2]string, len(m.Strict))
		for i, c := range m.Strict {
			calls[i] = [2]string{c.Input, c.Output}
		}
		out.Calls = calls
		out.Cursor = m.Cursor
	}
	return json.Marshal(out)
}

// UnmarshalJSON reconstructs a memo from the persisted schema.
func (m *Memo) UnmarshalJSON(data []byte) error {
	var raw memoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	policy := raw.CachingPolicy
	if policy != PolicyStrict && policy != PolicyLoose {
		return fmt.Errorf("invalid caching_policy %q", string(policy))
	}
	m.Policy = policy

	serializer, err := parseSerializer(raw.Serializer)
	if err != nil {
		return err
	}
	m.Serializer = serializer

	if policy == PolicyLoose {
		m.Cursor = 0
		m.Strict = nil
		if len(raw.Calls) == 0 {
			m.Loose = map[string]string{}
			return nil
		}
		if err := json.Unmarshal(raw.Calls, &m.Loose); err != nil {
			return fmt.Errorf("loose calls: %w", err)
		}
		if m.Loose == nil {
			m.Loose = map[string]string{}
		}
		return nil
	}

	m.Loose = nil
	var pairs [][]string
	if len(raw.Calls) > 0 {
		if err := json.Unmarshal(raw.Calls, &pairs); err != nil {
			return fmt.Errorf("strict calls: %w", err)
		}
	}
	m.Strict = make([]Call, 0, len(pairs))
	for i, p := range pairs {
		if len(p) != 2 {
			return fmt.Errorf("strict calls[%d]: want [input, output], got %d elements", i, len(p))
		}
		m.Strict = append(m.Strict, Call{Input: p[0], Output: p[1]})
	}

	if len(raw.Cursor) == 0 {
		m.Cursor = 0
		return nil
	}
	if err := json.Unmarshal(raw.Cursor, &m.Cursor); err != nil {
		return fmt.Errorf("cursor: %w", err)
	}
	if m.Cursor < 0 {
		return fmt.Errorf("cursor: negative value %d", m.Cursor)
	}
	return nil
}

// parseSerializer accepts both persisted forms: a single tag applying
// to both sides, or an [input, output] pair.
func parseSerializer(raw json.RawMessage) (codec.Pair, error) {
	if len(raw) == 0 {
		return codec.DefaultPair, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return codec.Pair{Input: codec.Format(single), Output: codec.Format(single)}, nil
	}
	var pair []string
	if err := json.Unmarshal(raw, &pair); err != nil {
		return codec.Pair{}, fmt.Errorf("serializer: %w", err)
	}
	if len(pair) != 2 {
		return codec.Pair{}, fmt.Errorf("serializer: want [input, output], got %d elements", len(pair))
	}
	return codec.Pair{Input: codec.Format(pair[0]), Output: codec.Format(pair[1])}, nil
}
