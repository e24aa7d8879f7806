// Package iojson prints command results as indented JSON.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
)

// encodeFailure is written to the error stream when a result cannot be
// encoded, so scripts reading stderr still get JSON.
type encodeFailure struct {
	Message string            `json:"message"`
	Data    map[string]string `json:"data"`
}

// Write encodes v to w with two-space indentation and no HTML escaping.
// Nothing reaches w when v cannot be encoded; a failure object goes to ew
// and the encoding error is returned.
func Write(w, ew io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	err := enc.Encode(v)
	if err == nil {
		return nil
	}

	failure, _ := json.Marshal(encodeFailure{
		Message: "failed to encode output",
		Data:    map[string]string{"json_error": err.Error()},
	})
	_, _ = fmt.Fprintln(ew, string(failure))
	return fmt.Errorf("encode output: %w", err)
}
