package chatmodel

import "strings"

// String adapts plain, non-JSON text to the ContentProvider interface,
// so raw tool output and run transcripts can be used as chat message content.
type String string

func NewString(str string) String {
	return String(str)
}

// GetContent gets the content of the message for the chat history
func (s String) GetContent() string {
	return string(s)
}

func (s String) String() string {
	return string(s)
}

func (s String) Bytes() []byte {
	return []byte(s)
}

func (s *String) Unmarshal(bs []byte) error {
	*s = String(strings.Trim(string(bs), "\""))
	return nil
}
