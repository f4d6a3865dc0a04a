package transport

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// OptionalUUID is an assignee id from a request body. The frontend sends
// null or "" for "no assignee", and both decode to a nil Value.
type OptionalUUID struct {
	Value *uuid.UUID
	Set   bool
}

func (o OptionalUUID) IsZero() bool { return !o.Set }

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	o.Value = nil
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return err
	}
	o.Value = &id
	return nil
}

// Ptr is the provided id, or nil when the field was absent or blank.
func (o OptionalUUID) Ptr() *uuid.UUID {
	if !o.Set {
		return nil
	}
	return o.Value
}
