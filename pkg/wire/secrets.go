package wire

import "google.golang.org/protobuf/encoding/protowire"

// GetSecretRequest is moby.secrets.v1.Secrets/GetSecret's request. Field
// numbers: id=1 old=2 (deprecated alias kept for wire compatibility).
type GetSecretRequest struct {
	ID  string
	Old string
}

func (m *GetSecretRequest) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if b, err = appendString(b, 1, m.ID); err != nil {
		return nil, err
	}
	if b, err = appendString(b, 2, m.Old); err != nil {
		return nil, err
	}
	return b, nil
}

func (m *GetSecretRequest) Unmarshal(b []byte) error {
	*m = GetSecretRequest{}
	return consumeFields("GetSecretRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.ID = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Old = v
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// GetSecretResponse is Secrets/GetSecret's response. Field numbers: data=1.
type GetSecretResponse struct {
	Data []byte
}

func (m *GetSecretResponse) Marshal() ([]byte, error) {
	return appendBytes(nil, 1, m.Data), nil
}

func (m *GetSecretResponse) Unmarshal(b []byte) error {
	*m = GetSecretResponse{}
	return consumeFields("GetSecretResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Data = append([]byte(nil), v...)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}
