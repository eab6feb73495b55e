// Package rpccodec registers a JSON encoding.Codec with grpc-go's codec
// registry. Golem's control plane has no protoc toolchain available to
// generate the usual *.pb.go message types, so internal/golempb defines
// its wire messages as plain Go structs with json tags and this codec
// is what lets grpc-go marshal/unmarshal them — the transport,
// streaming, and interceptor stack are all the genuine dependency;
// only the code-generation step is substituted.
package rpccodec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is registered as the content-subtype passed to
// grpc.CallContentSubtype / grpc.ForceServerCodec.
const Name = "json"

func init() {
	encoding.RegisterCodec(codec{})
}

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpccodec: marshal: %w", err)
	}
	return b, nil
}

func (codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpccodec: unmarshal: %w", err)
	}
	return nil
}

func (codec) Name() string { return Name }

// Codec returns the encoding.Codec this package registers under Name,
// for direct use with grpc.ForceServerCodec / grpc.CallContentSubtype
// without relying on codec-by-name lookup.
func Codec() encoding.Codec { return codec{} }
