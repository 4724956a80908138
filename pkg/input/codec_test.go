package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   ClientInput
	}{
		{name: "empty parameters", in: ClientInput{ID: 1, Name: "jump", Timestamp: 12.25}},
		{name: "with parameters", in: ClientInput{ID: 300, Name: "move", Parameters: []byte{0, 1, 2, 255}, Timestamp: -3.5}},
		{name: "utf8 name", in: ClientInput{ID: 7, Name: "跳跃", Parameters: []byte{42}, Timestamp: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Unmarshal(Marshal(tc.in))
			require.NoError(t, err)
			require.Equal(t, tc.in, got)
		})
	}
}

func TestMarshalLayout(t *testing.T) {
	data := Marshal(ClientInput{ID: 1, Name: "a", Parameters: []byte{7}, Timestamp: 1})
	require.Equal(t, []byte{
		1, 0, 0, 0, // id
		1, 'a', // name
		1, 7, // parameters
		0, 0, 0, 0, 0, 0, 0xf0, 0x3f, // 1.0
	}, data)
}

func TestUnmarshalMalformed(t *testing.T) {
	valid := Marshal(ClientInput{ID: 5, Name: "move", Parameters: []byte{1, 2, 3}, Timestamp: 4})

	cases := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short id", data: valid[:3]},
		{name: "truncated name", data: valid[:6]},
		{name: "missing timestamp", data: valid[:len(valid)-8]},
		{name: "truncated timestamp", data: valid[:len(valid)-1]},
		{name: "trailing bytes", data: append(append([]byte(nil), valid...), 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal(tc.data)
			require.ErrorIs(t, err, ErrMalformedInput)
		})
	}
}
