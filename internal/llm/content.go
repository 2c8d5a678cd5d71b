package llm

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errInvalidContent = errors.New("message content must be a string or an array of content blocks")

// Content is a message body as raw JSON: either a string or an array of content blocks.
// Block arrays are forwarded to the service untouched.
type Content json.RawMessage

// Text builds plain string content.
func Text(s string) Content {
	b, _ := json.Marshal(s) //nolint:errchkjson // strings always marshal
	return Content(b)
}

// MarshalJSON implements json.Marshaler.
func (c Content) MarshalJSON() ([]byte, error) {
	if len(c) == 0 {
		return []byte(`""`), nil
	}
	return c, nil
}

// UnmarshalJSON implements json.Unmarshaler. Anything but a string or an array is rejected.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '"' && trimmed[0] != '[') {
		return errInvalidContent
	}
	*c = append((*c)[:0], trimmed...)
	return nil
}
