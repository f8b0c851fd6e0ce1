package grpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// The service has no generated protobuf types; requests and responses are the
// JSON-tagged DTOs. Clients select this codec with the "json" content subtype.
func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}
