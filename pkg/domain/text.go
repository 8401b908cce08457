package domain

import (
	"bytes"
	"encoding/json"
)

// Text is a metadata value read as text. Girder metadata is free-form, so
// numbers, booleans and nested values decode to their JSON form and null
// decodes to "".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*t = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(b)
	}
	return nil
}
