package types

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memberPatch struct {
	MemberID NullableUUID `json:"memberId"`
}

func TestNullableUUIDDistinguishesAbsentNullAndSet(t *testing.T) {
	member := uuid.MustParse("6f1c2d7e-3b7a-4c55-9a3e-1f0b8d2a4c11")

	cases := []struct {
		name    string
		body    string
		present bool
		value   *uuid.UUID
	}{
		{name: "absent leaves unchanged", body: `{}`},
		{name: "null clears", body: `{"memberId":null}`, present: true},
		{name: "value links", body: `{"memberId":"6f1c2d7e-3b7a-4c55-9a3e-1f0b8d2a4c11"}`, present: true, value: &member},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got memberPatch
			require.NoError(t, json.Unmarshal([]byte(tc.body), &got))
			require.Equal(t, tc.present, got.MemberID.Valid)
			require.Equal(t, tc.value, got.MemberID.Value)
		})
	}

	var bad memberPatch
	require.Error(t, json.Unmarshal([]byte(`{"memberId":"tech-7"}`), &bad))
}

func TestNullableUUIDEncodesClearAsNull(t *testing.T) {
	member := uuid.MustParse("6f1c2d7e-3b7a-4c55-9a3e-1f0b8d2a4c11")
	out, err := json.Marshal(struct {
		Linked  NullableUUID `json:"linked"`
		Cleared NullableUUID `json:"cleared"`
	}{Linked: SetUUID(member), Cleared: ClearUUID()})
	require.NoError(t, err)
	require.JSONEq(t, `{"linked":"6f1c2d7e-3b7a-4c55-9a3e-1f0b8d2a4c11","cleared":null}`, string(out))
}
