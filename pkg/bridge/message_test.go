package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gubancs/leafmap/pkg/bridge"
	"github.com/gubancs/leafmap/pkg/errors"
)

func TestDecodeInbound(t *testing.T) {
	msg, err := bridge.Decode([]byte(`{"kind":"event","targetId":"m1","eventTypeName":"click","payload":{"lat":10,"lng":20}}`))
	require.NoError(t, err)
	assert.Equal(t, bridge.KindEvent, msg.Kind)
	assert.Equal(t, "m1", msg.TargetID)
	assert.Equal(t, "click", msg.EventTypeName)
	assert.JSONEq(t, `{"lat":10,"lng":20}`, string(msg.Payload))

	msg, err = bridge.Decode([]byte(`{"kind":"result","id":"c1","result":12}`))
	require.NoError(t, err)
	assert.Equal(t, "c1", msg.ID)
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"malformed":     `{"kind":`,
		"outbound kind": `{"kind":"invoke","targetId":"m1"}`,
		"result no id":  `{"kind":"result","result":1}`,
		"event no type": `{"kind":"event","targetId":"m1"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := bridge.Decode([]byte(raw))
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestEncodeRoundTripsThroughJSON(t *testing.T) {
	args, err := bridge.EncodeArgs("setView", []any{[]float64{1, 2}, 4})
	require.NoError(t, err)

	data, err := bridge.Encode(&bridge.Message{Kind: bridge.KindInvoke, TargetID: "map", Operation: "setView", Args: args})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"invoke","targetId":"map","operation":"setView","args":[[1,2],4]}`, string(data))
}
