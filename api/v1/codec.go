package api_v1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const CODEC_NAME = "json"

// jsonCodec lets the trigger service run over grpc without generated
// protobuf messages. Clients select it with grpc.CallContentSubtype.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CODEC_NAME
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
