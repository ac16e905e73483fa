package wire

import "google.golang.org/protobuf/encoding/protowire"

// HealthCheckRequest is grpc.health.v1.Health/Check's request. Field
// numbers: service=1. The session tunnel never inspects the service
// name: it always answers SERVING regardless of which service the
// daemon asks about.
type HealthCheckRequest struct {
	Service string
}

func (m *HealthCheckRequest) Marshal() ([]byte, error) {
	return appendString(nil, 1, m.Service)
}

func (m *HealthCheckRequest) Unmarshal(b []byte) error {
	*m = HealthCheckRequest{}
	return consumeFields("HealthCheckRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Service = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// HealthCheckResponse is Health/Check's response. Field numbers:
// status=1, matching grpc.health.v1's ServingStatus enum
// (UNKNOWN=0, SERVING=1, NOT_SERVING=2).
type HealthCheckResponse struct {
	Status int32
}

// StatusServing is the only status the session tunnel ever reports: a
// session attachable that can still accept a Serve call is, by
// definition, serving.
const StatusServing int32 = 1

func (m *HealthCheckResponse) Marshal() ([]byte, error) {
	return appendVarint(nil, 1, uint64(m.Status)), nil
}

func (m *HealthCheckResponse) Unmarshal(b []byte) error {
	*m = HealthCheckResponse{}
	return consumeFields("HealthCheckResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Status = int32(v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}
