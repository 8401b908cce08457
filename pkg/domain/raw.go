package domain

import "encoding/json"

// keepRaw copies the document a record was decoded from so JSON output can
// reproduce the server's response, unknown fields included.
func keepRaw(b []byte) json.RawMessage {
	return append(json.RawMessage(nil), b...)
}
