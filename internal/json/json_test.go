package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Room int    `json:"room,omitempty"`
}

func TestMarshalCompatible(t *testing.T) {
	data, err := Marshal(sample{ID: 100, Name: "alice"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":100,"name":"alice"}`, string(data))

	var out sample
	require.NoError(t, Unmarshal([]byte(`{"id":101,"name":"bob","room":3}`), &out))
	assert.Equal(t, sample{ID: 101, Name: "bob", Room: 3}, out)
}

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode([]sample{{ID: 1, Name: "a"}}))
	assert.JSONEq(t, `[{"id":1,"name":"a"}]`, buf.String())
}
