// Package jsoncodec registers a gRPC codec that carries messages as JSON.
// Clients select it with grpc.CallContentSubtype(Name); servers pick it up from the
// content-type of each request once this package is imported.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Name is the gRPC content-subtype ("application/grpc+json").
const Name = "json"

// Codec marshals gRPC messages with encoding/json.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: marshal %T: %w", v, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("jsoncodec: unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string { return Name }

// CallOption selects this codec for a client call.
func CallOption() grpc.CallOption {
	return grpc.CallContentSubtype(Name)
}

func init() {
	encoding.RegisterCodec(Codec{})
}
