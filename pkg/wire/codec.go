package wire

import "fmt"

// Codec lets grpc.NewServer/grpc.Dial marshal our hand-written Message
// types directly, bypassing the proto.Message machinery entirely. Pass it
// with grpc.CallContentSubtype/grpc.ForceCodec since there's no
// google.golang.org/protobuf descriptor behind these types for the default
// codec to reflect over.
type Codec struct{}

// Name reports "proto" so the wire's content-subtype matches what a real
// buildkit peer sends, even though encoding is handled here rather than by
// the protobuf runtime.
func (Codec) Name() string { return "proto" }

func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("wire: cannot marshal %T: does not implement wire.Message", v)
	}
	return m.Marshal()
}

func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("wire: cannot unmarshal into %T: does not implement wire.Message", v)
	}
	return m.Unmarshal(data)
}
