package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is the canonical form of a server identifier. Note ids arrive as JSON
// numbers and user ids as strings; both are held as their decimal or literal
// text so that equality is plain ==.
type ID string

// ParseID normalizes a textual identifier.
func ParseID(s string) ID {
	return ID(strings.TrimSpace(s))
}

func (id ID) String() string { return string(id) }

// IsZero reports whether no identifier has been assigned.
func (id ID) IsZero() bool { return id == "" }

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ParseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: expected string or number, got %s", data)
	}
	*id = ParseID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}
