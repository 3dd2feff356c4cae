package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	// ErrFailedUnmarshalInput is returned when a tool cannot parse the input
	// provided by the model, so the caller can re-prompt with the schema.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")

	// ErrToolNotFound is returned when a tool is requested by name but is not registered.
	ErrToolNotFound = errors.New("tool not found")
)

// ContentProvider is implemented by tool inputs and outputs that
// can render themselves as chat message content.
type ContentProvider interface {
	GetContent() string
}

type Stringer interface {
	String() string
}

func Stringify(s any) string {
	if v, ok := s.(Stringer); ok {
		return v.String()
	}
	if v, ok := s.(ContentProvider); ok {
		return v.GetContent()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}

func ToBytes(s any) []byte {
	if v, ok := s.(Stringer); ok {
		return []byte(v.String())
	}
	if v, ok := s.(ContentProvider); ok {
		return []byte(v.GetContent())
	}
	bs, _ := json.Marshal(s)
	return bs
}
