// Package codec implements the serialization subsystem of the event
// recorder: it turns an intercepted call's argument tuple or return
// value into persisted text, and back.
//
// Four formats are supported, selectable independently for the input
// and output side of the same call site:
//
//   - json: canonical JSON text. Object keys are sorted by UTF-16 code
//     units and strings are NFC normalized, so equal values always
//     encode to identical text regardless of map iteration order.
//   - binary: gob serialization of an arbitrary value, base64 encoded.
//   - stream: consumes an io.Reader fully and stores its contents with
//     the binary encoding; decodes into a fresh in-memory reader.
//   - composite-push: a (path, source) payload for file-upload-like
//     calls. A source that is itself a stream is consumed by the real
//     call, so the encoder substitutes the already-produced output of
//     that call instead (see Options.Substitute).
//
// Unknown format tags fall back to json with a logged warning rather
// than failing the call: the recorder favors availability over
// strictness here.
package codec
