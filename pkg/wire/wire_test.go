package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	original := &Stat{Path: "a/b.txt", Mode: 0o644, UID: 1000, GID: 1000, Size: 42, ModTime: 1700000000}

	frame, err := EncodeFrame(original)
	require.NoError(t, err)

	got := &Stat{}
	rest, err := DecodeFrame(frame, got)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, original, got)
}

func TestDecodeFrameIncomplete(t *testing.T) {
	original := &Stat{Path: "c.txt", Size: 10}
	frame, err := EncodeFrame(original)
	require.NoError(t, err)

	got := &Stat{}
	rest, err := DecodeFrame(frame[:len(frame)-1], got)
	require.NoError(t, err)
	assert.Equal(t, frame[:len(frame)-1], rest)
}

func TestDecodeFrameConcatenated(t *testing.T) {
	a := &Stat{Path: "one"}
	b := &Stat{Path: "two"}
	fa, err := EncodeFrame(a)
	require.NoError(t, err)
	fb, err := EncodeFrame(b)
	require.NoError(t, err)

	buf := append(append([]byte{}, fa...), fb...)

	got1 := &Stat{}
	buf, err = DecodeFrame(buf, got1)
	require.NoError(t, err)
	assert.Equal(t, a, got1)

	got2 := &Stat{}
	buf, err = DecodeFrame(buf, got2)
	require.NoError(t, err)
	assert.Equal(t, b, got2)
	assert.Empty(t, buf)
}

func TestStatRoundTripWithXattrs(t *testing.T) {
	original := &Stat{
		Path:     "dir/file",
		Mode:     0o100644,
		UID:      0,
		GID:      0,
		Size:     0,
		Linkname: "",
		Xattrs: map[string][]byte{
			"user.one": []byte("alpha"),
			"user.two": []byte("beta"),
		},
	}

	b, err := original.Marshal()
	require.NoError(t, err)

	got := &Stat{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, original, got)
}

func TestStatRoundTripSymlink(t *testing.T) {
	original := &Stat{Path: "link", Mode: 0o120777, Linkname: "target"}

	b, err := original.Marshal()
	require.NoError(t, err)

	got := &Stat{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, original, got)
}

func TestStatInvalidUTF8Path(t *testing.T) {
	original := &Stat{Path: string([]byte{0xff, 0xfe})}
	_, err := original.Marshal()
	assert.Error(t, err)
}

func TestPacketRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		packet *Packet
	}{
		{"stat packet", &Packet{Type: PacketStat, ID: 0, Stat: &Stat{Path: "x", Mode: 0o644}}},
		{"req packet for id zero", &Packet{Type: PacketReq, ID: 0}},
		{"req packet for nonzero id", &Packet{Type: PacketReq, ID: 7}},
		{"data packet", &Packet{Type: PacketData, ID: 3, Data: []byte("hello world")}},
		{"fin packet", &Packet{Type: PacketFin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := tt.packet.Marshal()
			require.NoError(t, err)

			got := &Packet{}
			require.NoError(t, got.Unmarshal(b))
			assert.Equal(t, tt.packet, got)
		})
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	req := &CredentialsRequest{Host: "registry.example.com"}
	b, err := req.Marshal()
	require.NoError(t, err)
	got := &CredentialsRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req, got)

	resp := &CredentialsResponse{Username: "alice", Secret: "s3cret"}
	b, err = resp.Marshal()
	require.NoError(t, err)
	gotResp := &CredentialsResponse{}
	require.NoError(t, gotResp.Unmarshal(b))
	assert.Equal(t, resp, gotResp)
}

func TestFetchTokenRoundTrip(t *testing.T) {
	req := &FetchTokenRequest{
		Host:    "registry.example.com",
		Realm:   "https://auth.example.com/token",
		Service: "registry.example.com",
		Scopes:  []string{"repository:foo/bar:pull", "repository:foo/bar:push"},
	}
	b, err := req.Marshal()
	require.NoError(t, err)
	got := &FetchTokenRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req, got)

	resp := &FetchTokenResponse{Token: "abc123", ExpiresIn: 300, IssuedAt: 1700000000}
	b, err = resp.Marshal()
	require.NoError(t, err)
	gotResp := &FetchTokenResponse{}
	require.NoError(t, gotResp.Unmarshal(b))
	assert.Equal(t, resp, gotResp)
}

func TestTokenAuthorityRoundTrip(t *testing.T) {
	req := &GetTokenAuthorityRequest{Host: "registry.example.com"}
	b, err := req.Marshal()
	require.NoError(t, err)
	got := &GetTokenAuthorityRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req, got)

	resp := &GetTokenAuthorityResponse{PublicKey: []byte{0x01, 0x02, 0x03}}
	b, err = resp.Marshal()
	require.NoError(t, err)
	gotResp := &GetTokenAuthorityResponse{}
	require.NoError(t, gotResp.Unmarshal(b))
	assert.Equal(t, resp, gotResp)
}

func TestVerifyTokenAuthorityRoundTrip(t *testing.T) {
	req := &VerifyTokenAuthorityRequest{Host: "registry.example.com", Payload: []byte("nonce")}
	b, err := req.Marshal()
	require.NoError(t, err)
	got := &VerifyTokenAuthorityRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req, got)

	resp := &VerifyTokenAuthorityResponse{Signed: []byte("sig")}
	b, err = resp.Marshal()
	require.NoError(t, err)
	gotResp := &VerifyTokenAuthorityResponse{}
	require.NoError(t, gotResp.Unmarshal(b))
	assert.Equal(t, resp, gotResp)
}

func TestGetSecretRoundTrip(t *testing.T) {
	req := &GetSecretRequest{ID: "mysecret"}
	b, err := req.Marshal()
	require.NoError(t, err)
	got := &GetSecretRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req, got)

	resp := &GetSecretResponse{Data: []byte("topsecret")}
	b, err = resp.Marshal()
	require.NoError(t, err)
	gotResp := &GetSecretResponse{}
	require.NoError(t, gotResp.Unmarshal(b))
	assert.Equal(t, resp, gotResp)
}

func TestSolveRequestRoundTrip(t *testing.T) {
	req := &SolveRequest{
		Ref: "build-1",
		Definition: &Definition{
			Def:      [][]byte{[]byte("op1"), []byte("op2")},
			Metadata: []byte("meta"),
		},
		Exporter:      "image",
		ExporterAttrs: map[string]string{"name": "docker.io/library/app:latest"},
		Session:       "sess-1",
		Frontend:      "dockerfile.v0",
		FrontendAttrs: map[string]string{"filename": "Dockerfile"},
		Cache: &CacheOptions{
			ExportRefs: []string{"docker.io/library/app:cache"},
			Entries: []*CacheOptionsEntry{
				{Type: "registry", Attrs: map[string]string{"ref": "docker.io/library/app:cache"}},
			},
		},
		Entitlements: []string{"network.host"},
	}

	b, err := req.Marshal()
	require.NoError(t, err)

	got := &SolveRequest{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, req, got)
}

func TestStatusResponseRoundTrip(t *testing.T) {
	resp := &StatusResponse{
		Vertexes: []*Vertex{
			{Digest: "sha256:abc", Name: "step 1", Started: 1, Completed: 2},
			{Digest: "sha256:def", Inputs: []string{"sha256:abc"}, Cached: true},
		},
		Statuses: []*VertexStatus{
			{ID: "downloading", Vertex: "sha256:abc", Current: 50, Total: 100},
		},
		Logs: []*VertexLog{
			{Vertex: "sha256:abc", Timestamp: 1700000000, Stream: 1, Msg: []byte("building\n")},
		},
	}

	b, err := resp.Marshal()
	require.NoError(t, err)

	got := &StatusResponse{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, resp, got)
}

func TestBytesMessageRoundTrip(t *testing.T) {
	m := &BytesMessage{Data: []byte("chunk")}
	b, err := m.Marshal()
	require.NoError(t, err)
	got := &BytesMessage{}
	require.NoError(t, got.Unmarshal(b))
	assert.Equal(t, m, got)
}

func TestCodecRoundTrip(t *testing.T) {
	var codec Codec
	assert.Equal(t, "proto", codec.Name())

	m := &StatusRequest{Ref: "build-1"}
	b, err := codec.Marshal(m)
	require.NoError(t, err)

	got := &StatusRequest{}
	require.NoError(t, codec.Unmarshal(b, got))
	assert.Equal(t, m, got)
}

func TestCodecRejectsNonMessage(t *testing.T) {
	var codec Codec
	_, err := codec.Marshal("not a message")
	assert.Error(t, err)

	err = codec.Unmarshal([]byte{}, "not a message")
	assert.Error(t, err)
}
