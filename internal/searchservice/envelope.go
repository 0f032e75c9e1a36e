package searchservice

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// requestKind discriminates the three RPC kinds multiplexed over one
// listener. Go generics bind one concrete (Req, Resp) pair per
// transport.Wrapper, so serving three distinct pairs on the single
// host:port a searcher advertises needs one shared wire type with its own
// dispatch tag rather than three separate listeners.
type requestKind byte

const (
	kindSearch requestKind = iota + 1
	kindRetrieveWebsites
	kindGetWebpage
)

// routedRequest is the private envelope carried over the shared
// transport.Wrapper: Kind says which gob type Payload decodes as.
type routedRequest struct {
	Kind    requestKind
	Payload []byte
}

// routedResponse mirrors routedRequest for the reply side. Ok follows the
// same "content vs. empty" convention as transport.Response; it is kept
// here too so a decode failure inside the payload (rather than at the
// transport framing layer) still surfaces as a clean error.
type routedResponse struct {
	Kind    requestKind
	Ok      bool
	Payload []byte
}

func encodePayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("searchservice: encode payload: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePayload(payload []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(v); err != nil {
		return fmt.Errorf("searchservice: decode payload: %w", err)
	}
	return nil
}
