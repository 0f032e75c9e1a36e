package server

import "encoding/json"

// encodeJSON marshals v to compact (non-indented) JSON bytes.
func encodeJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
