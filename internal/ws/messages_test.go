package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage(t *testing.T) {
	_, err := decodeMessage([]byte(`{"type":`))
	assert.Error(t, err)

	_, err = decodeMessage([]byte(`null`))
	assert.ErrorIs(t, err, errNotObject)

	_, err = decodeMessage([]byte(`["offer"]`))
	assert.Error(t, err)

	m, err := decodeMessage([]byte(`{"type":"ice","candidate":{"sdpMid":"0"}}`))
	require.NoError(t, err)
	assert.Equal(t, "ice", m.Type())
	assert.True(t, m.Has("candidate"))
	assert.False(t, m.Has("sdp"))
}

func TestMessageType_NonStringIsMissing(t *testing.T) {
	for _, raw := range []string{`{}`, `{"type":7}`, `{"type":null}`, `{"type":""}`} {
		m, err := decodeMessage([]byte(raw))
		require.NoError(t, err)
		assert.Empty(t, m.Type(), raw)
	}
}

func TestWithFrom_OverwritesAndCopies(t *testing.T) {
	m, err := decodeMessage([]byte(`{"type":"answer","from":"mallory","sdp":"x"}`))
	require.NoError(t, err)

	stamped := m.withFrom("peer-9")

	out, err := json.Marshal(stamped)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"answer","from":"peer-9","sdp":"x"}`, string(out))
	assert.JSONEq(t, `"mallory"`, string(m["from"]), "original must stay untouched")
}

func TestRouter_DispatchDecodesRequest(t *testing.T) {
	r := NewRouter()
	var got JoinRequest
	Register(r, TypeJoin, func(_ context.Context, _ *ConnContext, req JoinRequest, msg Message) error {
		got = req
		assert.Equal(t, TypeJoin, msg.Type())
		return nil
	})

	frame := []byte(`{"type":"join","roomId":"0012345"}`)
	msg, err := decodeMessage(frame)
	require.NoError(t, err)
	require.NoError(t, r.dispatch(context.Background(), &ConnContext{}, msg, frame))
	assert.Equal(t, idField{ID: "0012345", Set: true}, got.RoomID)
}

func TestRouter_UnknownAndMalformed(t *testing.T) {
	r := NewRouter()
	called := false
	Register(r, TypeCreate, func(context.Context, *ConnContext, CreateRequest, Message) error {
		called = true
		return nil
	})

	frame := []byte(`{"type":"dance"}`)
	msg, _ := decodeMessage(frame)
	assert.ErrorIs(t, r.dispatch(context.Background(), &ConnContext{}, msg, frame), errUnknownType)

	frame = []byte(`{"type":"create","roomId":42}`)
	msg, _ = decodeMessage(frame)
	err := r.dispatch(context.Background(), &ConnContext{}, msg, frame)
	var typeErr *json.UnmarshalTypeError
	assert.True(t, errors.As(err, &typeErr))
	assert.False(t, called)
}

func TestIDField_Decode(t *testing.T) {
	cases := map[string]idField{
		`{}`:                {},
		`{"to":null}`:       {},
		`{"to":""}`:         {},
		`{"to":"peer-1"}`:   {ID: "peer-1", Set: true},
		`{"to":12345}`:      {Set: true},
		`{"to":{"id":"x"}}`: {Set: true},
		`{"to":["peer-1"]}`: {Set: true},
	}
	for raw, want := range cases {
		var req SignalRequest
		require.NoError(t, json.Unmarshal([]byte(raw), &req), raw)
		assert.Equal(t, want, req.To, raw)
	}
}

func TestRegister_EmptyTypePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(NewRouter(), "", func(context.Context, *ConnContext, Empty, Message) error { return nil })
	})
}
