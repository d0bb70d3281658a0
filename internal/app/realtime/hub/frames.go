// internal/app/realtime/hub/frames.go
package hub

import (
	"encoding/json"

	"github.com/dalemusser/chathub/internal/app/chat"
)

// Clients speak a small request/response protocol over one socket. A
// request carries a client-chosen correlation id and an op name; the reply
// echoes the id. Server-initiated events have no id, only an event name.
//
//	-> {"id":"7f3a","op":"send_group_message","data":{...}}
//	<- {"id":"7f3a","ok":true,"data":{...}}
//	<- {"event":"new_group_message","data":{...}}
type request struct {
	ID   string          `json:"id"`
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

type response struct {
	ID    string     `json:"id"`
	OK    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *wireError `json:"error,omitempty"`
}

type wireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type eventFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func encodeResult(id string, data any) []byte {
	b, err := json.Marshal(response{ID: id, OK: true, Data: data})
	if err != nil {
		return []byte(`{"id":"` + id + `","ok":false,"error":{"kind":"upstream","message":"internal server error"}}`)
	}
	return b
}

func encodeError(id string, err error) []byte {
	b, mErr := json.Marshal(response{
		ID: id,
		OK: false,
		Error: &wireError{
			Kind:    string(chat.KindOf(err)),
			Message: chat.MessageOf(err),
		},
	})
	if mErr != nil {
		return []byte(`{"id":"` + id + `","ok":false,"error":{"kind":"upstream","message":"internal server error"}}`)
	}
	return b
}

func encodeEvent(event string, data any) ([]byte, error) {
	return json.Marshal(eventFrame{Event: event, Data: data})
}
