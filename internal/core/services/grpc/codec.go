package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodec marshals the control-surface's generated-looking message structs
// (wired.pb.go) as JSON instead of the protobuf wire format. It registers
// under the name grpc-go's transport negotiates by default ("proto") since
// this module has no working protoreflect-compatible stubs to hand it (see
// wired.pb.go's header comment) — every message here already satisfies
// encoding/json without additional plumbing.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                               { return "proto" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
