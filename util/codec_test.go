package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type mark struct {
	Time  int64  `json:"time,omitempty"`
	Label string `json:"label,omitempty"`
}

func TestJsonCodec(t *testing.T) {
	codec := NewJsonCodec[mark]()
	data, err := codec.Encode(mark{Time: 42})
	require.NoError(t, err)
	require.JSONEq(t, `{"time":42}`, string(data))

	m, err := codec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, int64(42), m.Time)

	_, err = codec.Decode(nil)
	require.True(t, errors.Is(err, ErrEmptyValue))

	_, err = codec.Decode([]byte("{"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "util.mark")
}

func TestJsonCodecDecodeAll(t *testing.T) {
	values, failed := NewJsonCodec[mark]().DecodeAll(map[string]string{
		"a": `{"label":"a"}`,
		"b": `not json`,
	})
	require.Len(t, values, 1)
	require.Equal(t, "a", values[0].Label)
	require.Len(t, failed, 1)
	require.Contains(t, failed, "b")
}
