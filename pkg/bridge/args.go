package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/gubancs/leafmap/pkg/errors"
)

// Target is anything that has a remote counterpart.
type Target interface {
	ID() string
}

// Ref is the wire form of an entity passed as an argument. Spec carries
// the constructor state for entities the remote side has not seen yet.
type Ref struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Spec any    `json:"spec,omitempty"`
}

// Referable is implemented by entities that may be passed as arguments.
type Referable interface {
	Ref() Ref
}

type refEnvelope struct {
	Ref Ref `json:"$ref"`
}

// EncodeArgs serializes each argument independently. Referable values
// become {"$ref": {...}} objects.
func EncodeArgs(operation string, args []any) ([]json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, len(args))
	for i, arg := range args {
		var v any = arg
		if r, ok := arg.(Referable); ok {
			v = refEnvelope{Ref: r.Ref()}
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.NewEncodeError(operation, i, err)
		}
		out[i] = data
	}
	return out, nil
}

func decodeResult[T any](operation string, raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errors.NewDecodeError("result of "+operation, fmt.Sprintf("%T", v), err)
	}
	return v, nil
}
