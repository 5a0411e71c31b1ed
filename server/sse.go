package server

import (
	"encoding/json"
	"io"
)

// writeSSEData writes one `data: <json>` frame. HTML escaping is disabled so
// fragments containing <, > or & go out verbatim instead of as \uXXXX
// escapes; non-ASCII is raw UTF-8 either way.
func writeSSEData(w io.Writer, payload any) {
	io.WriteString(w, "data: ")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	// Encode appends the first newline of the frame terminator.
	enc.Encode(payload)
	io.WriteString(w, "\n")
}

// writeSSESentinel writes the stream-end marker.
func writeSSESentinel(w io.Writer) {
	io.WriteString(w, "data: [DONE]\n\n")
}
