package admin

import "encoding/json"

// jsonCodec lets the admin service run over google.golang.org/grpc without
// a protoc-generated message/codec pair: it registers under the name
// "proto" (the name grpc.Server looks up when no content-subtype is
// negotiated) and marshals the plain Go request/response structs in admin.go as
// JSON instead of wire-format protobuf. This keeps the admin service
// self-contained — it has no .proto file or generated stubs to keep in
// sync — while still running on the real grpc.Server/grpc.ClientConn
// transport, framing, and interceptor chain.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "proto" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
