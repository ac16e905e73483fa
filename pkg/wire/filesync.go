package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// CredentialsRequest is moby.filesync.v1.Auth/Credentials's request.
// Field numbers: host=1.
type CredentialsRequest struct {
	Host string
}

func (m *CredentialsRequest) Marshal() ([]byte, error) {
	return appendString(nil, 1, m.Host)
}

func (m *CredentialsRequest) Unmarshal(b []byte) error {
	*m = CredentialsRequest{}
	return consumeFields("CredentialsRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Host = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// CredentialsResponse is Auth/Credentials's response. Field numbers:
// username=1 secret=2.
type CredentialsResponse struct {
	Username string
	Secret   string
}

func (m *CredentialsResponse) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if b, err = appendString(b, 1, m.Username); err != nil {
		return nil, err
	}
	if b, err = appendString(b, 2, m.Secret); err != nil {
		return nil, err
	}
	return b, nil
}

func (m *CredentialsResponse) Unmarshal(b []byte) error {
	*m = CredentialsResponse{}
	return consumeFields("CredentialsResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Username = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Secret = v
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// FetchTokenRequest is Auth/FetchToken's request. Field numbers: host=1
// realm=2 service=3 scopes=4 (repeated).
type FetchTokenRequest struct {
	Host    string
	Realm   string
	Service string
	Scopes  []string
}

func (m *FetchTokenRequest) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if b, err = appendString(b, 1, m.Host); err != nil {
		return nil, err
	}
	if b, err = appendString(b, 2, m.Realm); err != nil {
		return nil, err
	}
	if b, err = appendString(b, 3, m.Service); err != nil {
		return nil, err
	}
	for _, s := range m.Scopes {
		var e error
		b, e = appendRepeatedString(b, 4, s)
		if e != nil {
			return nil, e
		}
	}
	return b, nil
}

// appendRepeatedString always emits the tag, even for an empty string,
// since repeated fields are distinguished by occurrence count rather than
// by a nonzero check.
func appendRepeatedString(b []byte, num protowire.Number, s string) ([]byte, error) {
	if !isValidUTF8(s) {
		return nil, &EncodeError{Field: "repeated string", Err: errInvalidUTF8}
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendString(b, s)
	return b, nil
}

var errInvalidUTF8 = fmt.Errorf("invalid UTF-8")

func (m *FetchTokenRequest) Unmarshal(b []byte) error {
	*m = FetchTokenRequest{}
	return consumeFields("FetchTokenRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Host = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Realm = v
			return n, nil
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Service = v
			return n, nil
		case 4:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Scopes = append(m.Scopes, v)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// FetchTokenResponse is Auth/FetchToken's response. Field numbers: token=1
// expires_in=2 issued_at=3.
type FetchTokenResponse struct {
	Token     string
	ExpiresIn int64
	IssuedAt  int64
}

func (m *FetchTokenResponse) Marshal() ([]byte, error) {
	b, err := appendString(nil, 1, m.Token)
	if err != nil {
		return nil, err
	}
	b = appendVarint(b, 2, uint64(m.ExpiresIn))
	b = appendVarint(b, 3, uint64(m.IssuedAt))
	return b, nil
}

func (m *FetchTokenResponse) Unmarshal(b []byte) error {
	*m = FetchTokenResponse{}
	return consumeFields("FetchTokenResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Token = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.ExpiresIn = int64(v)
			return n, nil
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.IssuedAt = int64(v)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// GetTokenAuthorityRequest is Auth/GetTokenAuthority's request. Field
// numbers: host=1.
type GetTokenAuthorityRequest struct {
	Host string
}

func (m *GetTokenAuthorityRequest) Marshal() ([]byte, error) {
	return appendString(nil, 1, m.Host)
}

func (m *GetTokenAuthorityRequest) Unmarshal(b []byte) error {
	*m = GetTokenAuthorityRequest{}
	return consumeFields("GetTokenAuthorityRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Host = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// GetTokenAuthorityResponse is Auth/GetTokenAuthority's response. Field
// numbers: public_key=1.
type GetTokenAuthorityResponse struct {
	PublicKey []byte
}

func (m *GetTokenAuthorityResponse) Marshal() ([]byte, error) {
	return appendBytes(nil, 1, m.PublicKey), nil
}

func (m *GetTokenAuthorityResponse) Unmarshal(b []byte) error {
	*m = GetTokenAuthorityResponse{}
	return consumeFields("GetTokenAuthorityResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.PublicKey = append([]byte(nil), v...)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// VerifyTokenAuthorityRequest is Auth/VerifyTokenAuthority's request: ask
// the session client to sign a payload with its token authority key, so
// the daemon can verify it holds the private half later. Field numbers:
// host=1 payload=2.
type VerifyTokenAuthorityRequest struct {
	Host    string
	Payload []byte
}

func (m *VerifyTokenAuthorityRequest) Marshal() ([]byte, error) {
	b, err := appendString(nil, 1, m.Host)
	if err != nil {
		return nil, err
	}
	b = appendBytes(b, 2, m.Payload)
	return b, nil
}

func (m *VerifyTokenAuthorityRequest) Unmarshal(b []byte) error {
	*m = VerifyTokenAuthorityRequest{}
	return consumeFields("VerifyTokenAuthorityRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Host = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Payload = append([]byte(nil), v...)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// VerifyTokenAuthorityResponse carries the signature over the payload
// VerifyTokenAuthorityRequest asked for. Field numbers: signed=1.
type VerifyTokenAuthorityResponse struct {
	Signed []byte
}

func (m *VerifyTokenAuthorityResponse) Marshal() ([]byte, error) {
	return appendBytes(nil, 1, m.Signed), nil
}

func (m *VerifyTokenAuthorityResponse) Unmarshal(b []byte) error {
	*m = VerifyTokenAuthorityResponse{}
	return consumeFields("VerifyTokenAuthorityResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Signed = append([]byte(nil), v...)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}
