package jsoncodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

type sample struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

func TestCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(Name)
	require.NotNil(t, c)
	assert.Equal(t, Name, c.Name())
}

func TestCodec_RoundTrip(t *testing.T) {
	in := &sample{Name: "alice", Roles: []string{"admin"}}
	b, err := Codec{}.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"alice","roles":["admin"]}`, string(b))

	var out sample
	require.NoError(t, Codec{}.Unmarshal(b, &out))
	assert.Equal(t, *in, out)
}

func TestCodec_EmptyBody(t *testing.T) {
	var out sample
	require.NoError(t, Codec{}.Unmarshal(nil, &out))
	assert.Equal(t, sample{}, out)
}

func TestCodec_Errors(t *testing.T) {
	_, err := Codec{}.Marshal(make(chan int))
	require.Error(t, err)

	var out sample
	require.Error(t, Codec{}.Unmarshal([]byte("{"), &out))
}
