package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID tracks whether a UUID field was explicitly present in JSON so
// PATCH payloads can distinguish "leave unchanged" from "clear".
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if bytes.Equal(trimmed, []byte("null")) {
		n.Valid = true
		n.Value = nil
		return nil
	}

	var parsed uuid.UUID
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Valid = true
	n.Value = &parsed
	return nil
}

// MarshalJSON implements json.Marshaler; an absent value encodes as null.
func (n NullableUUID) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value.String())
}

// SetUUID builds a present, non-null value.
func SetUUID(id uuid.UUID) NullableUUID {
	return NullableUUID{Valid: true, Value: &id}
}

// ClearUUID builds a present, null value.
func ClearUUID() NullableUUID {
	return NullableUUID{Valid: true}
}
