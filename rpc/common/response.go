package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrProtocol is returned when a server response does not have the shape the
// issued command requires (e.g. a query page without the last flag)
var ErrProtocol = errors.New("protocol inconsistency")

// --------------------------------------------------------------------------
// Response Envelope
// --------------------------------------------------------------------------

// Response status codes
const (
	StatusSuccess = 0
	StatusFailed  = 1
)

// Response is the reply to a single Command.
// Payload holds the json encoded result of the operation, its shape depends
// on the command that was issued.
type Response struct {
	Status  int             `json:"successStatus"`
	Err     string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"response,omitempty"`
}

// NewSuccessResponse creates a response wrapping the json encoding of result
func NewSuccessResponse(result any) *Response {
	payload, err := json.Marshal(result)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("failed to encode result: %s", err))
	}
	return &Response{Status: StatusSuccess, Payload: payload}
}

// NewErrorResponse creates a failed response
func NewErrorResponse(err string) *Response {
	return &Response{Status: StatusFailed, Err: err}
}

// ServerError is an error the server reported for a command
type ServerError struct {
	Status int
	Msg    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.Status, e.Msg)
}

// --------------------------------------------------------------------------
// Typed Payloads
// --------------------------------------------------------------------------

// KeyArgs is the body of single-key commands
type KeyArgs struct {
	Key string `json:"key"`
}

// KeyValueArgs is the body of single-entry write commands
type KeyValueArgs struct {
	Key   string `json:"key"`
	Value string `json:"val"`
}

// KeysArgs is the body of multi-key commands
type KeysArgs struct {
	Keys []string `json:"keys"`
}

// EntryRecord is a single key/value pair as it is transmitted
type EntryRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// EntriesArgs is the body of the putall command
type EntriesArgs struct {
	Entries []EntryRecord `json:"entries"`
}

// QueryArgs is the body of the query execute commands
type QueryArgs struct {
	Args []any `json:"args"`
}

// QueryPage is the result of a query execute or fetch command
type QueryPage struct {
	Items   []json.RawMessage `json:"items"`
	Last    bool              `json:"last"`
	QueryID string            `json:"queryId,omitempty"`
}

// rawQueryPage is used to detect missing fields while decoding a QueryPage
type rawQueryPage struct {
	Items   []json.RawMessage `json:"items"`
	Last    *bool             `json:"last"`
	QueryID json.RawMessage   `json:"queryId"`
}

// DecodeQueryPage decodes the payload of a query response.
// A payload without the last flag, or a non-final page without a query id,
// is rejected with ErrProtocol.
func DecodeQueryPage(payload []byte) (QueryPage, error) {
	var raw rawQueryPage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return QueryPage{}, fmt.Errorf("%w: malformed query page: %v", ErrProtocol, err)
	}
	if raw.Last == nil {
		return QueryPage{}, fmt.Errorf("%w: query page without last flag", ErrProtocol)
	}

	page := QueryPage{Items: raw.Items, Last: *raw.Last}
	if page.Items == nil {
		page.Items = []json.RawMessage{}
	}

	id, err := decodeQueryID(raw.QueryID)
	if err != nil {
		return QueryPage{}, err
	}
	if !page.Last && id == "" {
		return QueryPage{}, fmt.Errorf("%w: non-final query page without query id", ErrProtocol)
	}
	page.QueryID = id
	return page, nil
}

// decodeQueryID returns the query id as it has to be echoed to the server.
// The id is opaque, strings are unquoted, numbers are kept verbatim.
func decodeQueryID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: malformed query id: %v", ErrProtocol, err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: query id must be a string or number", ErrProtocol)
	}
	return n.String(), nil
}
