package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
)

// Format identifies one serialization format.
type Format string

const (
	JSON          Format = "json"
	Binary        Format = "binary"
	Stream        Format = "stream"
	CompositePush Format = "composite-push"
)

// supported lists the valid format tags, in documentation order.
var supported = []Format{JSON, Binary, Stream, CompositePush}

// Pair selects the input and output formats for one call site.
type Pair struct {
	Input  Format `json:"input"`
	Output Format `json:"output"`
}

// DefaultPair is the serializer pair used when none is configured.
var DefaultPair = Pair{Input: JSON, Output: JSON}

// Options carries per-encode context. Substitute is the real call's
// already-produced output, used by composite-push when the source is a
// stream that the real call consumed. Recording reports whether the
// engine is in record mode, which makes a missing substitute fatal.
type Options struct {
	Substitute any
	Recording  bool
}

// ErrSourceConsumed is returned when a composite-push payload carries a
// stream source and no substitute output is available while recording.
var ErrSourceConsumed = errors.New("composite-push source is a stream; output substitute required")

// IsSourceConsumed reports whether err is the consumed-stream recording
// failure, unwrapping as needed.
func IsSourceConsumed(err error) bool {
	return errors.Is(err, ErrSourceConsumed)
}

// Check validates a format tag, falling back to json with a warning on
// an unknown value. A nil logger means slog.Default.
func Check(f Format, log *slog.Logger) Format {
	for _, s := range supported {
		if f == s {
			return f
		}
	}
	if log == nil {
		log = slog.Default()
	}
	log.Warn("invalid serializer tag; falling back to json", "tag", string(f))
	return JSON
}

// CheckPair validates both halves of a serializer pair.
func CheckPair(p Pair, log *slog.Logger) Pair {
	return Pair{Input: Check(p.Input, log), Output: Check(p.Output, log)}
}

// Encode serializes v with the given format into persisted text.
func Encode(v any, f Format, opts Options) (string, error) {
	switch f {
	case JSON:
		raw, err := MarshalCanonical(v)
		if err != nil {
			return "", fmt.Errorf("encode json: %w", err)
		}
		return string(raw), nil
	case Binary:
		return encodeBinary(v)
	case Stream:
		r, ok := v.(io.Reader)
		if !ok {
			return "", fmt.Errorf("encode stream: value of type %T has no read side", v)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("encode stream: %w", err)
		}
		return encodeBinary(data)
	case CompositePush:
		return encodeCompositePush(v, opts)
	default:
		return "", fmt.Errorf("encode: invalid format %q", f)
	}
}

// Decode deserializes persisted text back into a value.
func Decode(s string, f Format) (any, error) {
	switch f {
	case JSON:
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return v, nil
	case Binary:
		return decodeBinary(s)
	case Stream:
		v, err := decodeBinary(s)
		if err != nil {
			return nil, fmt.Errorf("decode stream: %w", err)
		}
		switch data := v.(type) {
		case []byte:
			return bytes.NewReader(data), nil
		case string:
			return bytes.NewReader([]byte(data)), nil
		default:
			return nil, fmt.Errorf("decode stream: stored value is %T, not bytes", v)
		}
	case CompositePush:
		// Stored form is the binary-encoded pair with the substitute
		// in place of the consumed stream.
		return decodeBinary(s)
	default:
		return nil, fmt.Errorf("decode: invalid format %q", f)
	}
}

// encodeCompositePush handles the (path, source) payload of
// file-upload-like calls. A bytes or string source encodes directly; a
// stream source is replaced by the substitute output per Options.
//
// The payload is the call's input tuple: []any{args, kwargs} where
// args is []any{path, source}.
func encodeCompositePush(v any, opts Options) (string, error) {
	tuple, ok := v.([]any)
	if !ok || len(tuple) != 2 {
		return "", fmt.Errorf("encode composite-push: want (args, kwargs) tuple, got %T", v)
	}
	args, ok := tuple[0].([]any)
	if !ok || len(args) != 2 {
		return "", fmt.Errorf("encode composite-push: want exactly (path, source) arguments, got %v", tuple[0])
	}
	kwargs := tuple[1]
	path, source := args[0], args[1]

	switch source.(type) {
	case string, []byte:
		return encodeBinary([]any{[]any{path, source}, kwargs})
	}

	r, ok := source.(io.Reader)
	if !ok {
		return "", fmt.Errorf("encode composite-push: source of type %T is neither bytes, text nor stream", source)
	}
	if opts.Substitute != nil {
		return encodeBinary([]any{[]any{path, asBytes(opts.Substitute)}, kwargs})
	}
	if opts.Recording {
		return "", ErrSourceConsumed
	}
	// Replaying: the real call never ran, so the stream is still
	// readable. Consume it to produce a comparable serialization.
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("encode composite-push: cannot read source to compare with cache: %w", err)
	}
	return encodeBinary([]any{[]any{path, data}, kwargs})
}

// asBytes normalizes a text substitute to bytes so that the recorded
// form lines up with what a replay-side stream read produces.
func asBytes(v any) any {
	if s, ok := v.(string); ok {
		return []byte(s)
	}
	return v
}

// mapEntry is the persisted gob shape of one map pair. The serialized
// text doubles as the cache comparison key, and gob writes map entries
// in Go's randomized iteration order, so maps are flattened into
// key-sorted entry lists before encoding and rebuilt on decode.
type mapEntry struct {
	Key   string
	Value any
}

// sortMaps replaces every map[string]any in v with its key-sorted
// []mapEntry form, recursively.
func sortMaps(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		entries := make([]mapEntry, 0, len(keys))
		for _, k := range keys {
			entries = append(entries, mapEntry{Key: k, Value: sortMaps(val[k])})
		}
		return entries
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = sortMaps(elem)
		}
		return out
	}
	return v
}

// restoreMaps is the inverse of sortMaps.
func restoreMaps(v any) any {
	switch val := v.(type) {
	case []mapEntry:
		m := make(map[string]any, len(val))
		for _, e := range val {
			m[e.Key] = restoreMaps(e.Value)
		}
		return m
	case []any:
		for i, elem := range val {
			val[i] = restoreMaps(elem)
		}
		return val
	}
	return v
}

func encodeBinary(v any) (string, error) {
	v = sortMaps(v)
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return "", fmt.Errorf("encode binary: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeBinary(s string) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode binary: %w", err)
	}
	var v any
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode binary: %w", err)
	}
	return restoreMaps(v), nil
}

func init() {
	// Concrete types carried through the binary format as interface
	// values. Basic scalars, string and []byte are pre-registered by
	// the gob package itself.
	gob.Register([]any(nil))
	gob.Register([]mapEntry(nil))
	gob.Register([]string(nil))
}
