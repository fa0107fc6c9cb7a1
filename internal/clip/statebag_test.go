package clip

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryUnmarshalScalar(t *testing.T) {
	var e Entry
	err := json.Unmarshal([]byte(`{"c": "2026-01-15T10:00:00Z", "k": "ORCH_CS", "v": "3", "p": true}`), &e)
	require.NoError(t, err)
	assert.Equal(t, "ORCH_CS", e.Key)
	assert.Equal(t, "3", e.Value)
	assert.Nil(t, e.Claims)
	assert.True(t, e.Persisted)
}

func TestEntryUnmarshalClaimsObject(t *testing.T) {
	var e Entry
	err := json.Unmarshal([]byte(`{"k": "Complex-CLMS", "v": {"email": "a@example.com", "objectId": "42"}, "p": "True"}`), &e)
	require.NoError(t, err)
	assert.Empty(t, e.Value)
	assert.Equal(t, map[string]string{"email": "a@example.com", "objectId": "42"}, e.Claims)
	assert.True(t, e.Persisted, `the string form "True" decodes as a bool`)
}

func TestEntryUnmarshalPersistedVariants(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`{"p": true}`, true},
		{`{"p": false}`, false},
		{`{"p": "True"}`, true},
		{`{"p": "False"}`, false},
		{`{"p": "true"}`, true},
		{`{}`, false},
		{`{"p": 1}`, false},
	}
	for _, tc := range cases {
		var e Entry
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &e), tc.raw)
		assert.Equal(t, tc.want, e.Persisted, tc.raw)
	}
}

func TestEntryUnmarshalUnexpectedValueShape(t *testing.T) {
	var e Entry
	err := json.Unmarshal([]byte(`{"k": "weird", "v": [1, 2, 3]}`), &e)
	require.NoError(t, err, "unexpected shapes degrade, never fail the batch")
	assert.Empty(t, e.Value)
	assert.Nil(t, e.Claims)
}

func TestEntryMarshalRoundTrip(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		data, err := json.Marshal(Entry{Key: "CTP", Value: "AAD-UserRead:2", Persisted: true})
		require.NoError(t, err)
		var decoded Entry
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "AAD-UserRead:2", decoded.Value)
		assert.True(t, decoded.Persisted)
	})

	t.Run("claims", func(t *testing.T) {
		data, err := json.Marshal(Entry{Key: KeyComplexClaims, Claims: map[string]string{"email": "a@b.c"}})
		require.NoError(t, err)
		var decoded Entry
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, map[string]string{"email": "a@b.c"}, decoded.Claims)
	})
}

func TestStatebagDecode(t *testing.T) {
	var bag Statebag
	err := json.Unmarshal([]byte(`{
		"ORCH_CS": {"k": "ORCH_CS", "v": "1", "p": true},
		"Complex-CLMS": {"k": "Complex-CLMS", "v": {"email": "a@example.com"}, "p": true}
	}`), &bag)
	require.NoError(t, err)
	assert.Equal(t, "1", bag[KeyOrchestrationStep].Value)
	assert.Equal(t, map[string]string{"email": "a@example.com"}, bag[KeyComplexClaims].Claims)
}
