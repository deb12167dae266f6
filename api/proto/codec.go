package proto

import "encoding/json"

// Codec marshals the message types in this package as JSON instead of wire
// protobuf, since they don't implement protoreflect.ProtoMessage — see the
// package doc comment. Servers and clients install it explicitly with
// grpc.ForceServerCodec / grpc.ForceCodec rather than relying on gRPC's
// content-type negotiation, so there's no dependency on init-order against
// the real "proto" codec google.golang.org/grpc/encoding/proto registers.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (Codec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (Codec) Name() string { return "ctfmanager-json" }
