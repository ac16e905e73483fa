package tunnel

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

type fakeAuth struct{}

func (fakeAuth) Credentials(ctx context.Context, req *wire.CredentialsRequest) (*wire.CredentialsResponse, error) {
	return &wire.CredentialsResponse{Username: "u-" + req.Host, Secret: "s"}, nil
}

func (fakeAuth) FetchToken(ctx context.Context, req *wire.FetchTokenRequest) (*wire.FetchTokenResponse, error) {
	return &wire.FetchTokenResponse{Token: "tok", ExpiresIn: 60}, nil
}

func (fakeAuth) GetTokenAuthority(ctx context.Context, req *wire.GetTokenAuthorityRequest) (*wire.GetTokenAuthorityResponse, error) {
	return &wire.GetTokenAuthorityResponse{PublicKey: []byte("pub")}, nil
}

func (fakeAuth) VerifyTokenAuthority(ctx context.Context, req *wire.VerifyTokenAuthorityRequest) (*wire.VerifyTokenAuthorityResponse, error) {
	return &wire.VerifyTokenAuthorityResponse{Signed: req.Payload}, nil
}

type fakeFileSync struct {
	called chan struct{}
}

func (f *fakeFileSync) DiffCopy(ctx context.Context, w io.Writer, r io.Reader, dirName string, followPaths []string) error {
	close(f.called)
	frame, err := wire.EncodeFrame(&wire.Packet{Type: wire.PacketStat})
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

func TestServerClientAuthRoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	srv := NewServer(nil, fakeAuth{}, nil)
	go srv.Serve(serverConn)
	defer srv.Stop()

	client, err := Dial(clientConn)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Credentials(ctx, &wire.CredentialsRequest{Host: "registry.example.com"})
	require.NoError(t, err)
	require.Equal(t, "u-registry.example.com", resp.Username)
}

func TestServerAlwaysAnswersHealthCheck(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	// Health is registered unconditionally, even with every attachable
	// left nil: a session with no handlers still answers SERVING.
	srv := NewServer(nil, nil, nil)
	go srv.Serve(serverConn)
	defer srv.Stop()

	client, err := Dial(clientConn)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Health(ctx, &wire.HealthCheckRequest{Service: "moby.filesync.v1.FileSync"})
	require.NoError(t, err)
	require.Equal(t, wire.StatusServing, resp.Status)
}

func TestServerClientDiffCopyStream(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	fs := &fakeFileSync{called: make(chan struct{})}
	srv := NewServer(fs, nil, nil)
	go srv.Serve(serverConn)
	defer srv.Stop()

	client, err := Dial(clientConn)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w, r, err := client.OpenDiffCopy(ctx, "", nil)
	require.NoError(t, err)
	_ = w

	select {
	case <-fs.called:
	case <-time.After(5 * time.Second):
		t.Fatal("server DiffCopy handler was never invoked")
	}

	pkt := &wire.Packet{}
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	_, err = wire.DecodeFrame(buf[:n], pkt)
	require.NoError(t, err)
	require.Equal(t, wire.PacketStat, pkt.Type)
}
