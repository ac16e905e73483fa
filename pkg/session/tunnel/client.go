package tunnel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

// Client is the attachable-calling side of a session tunnel: the build
// daemon's view of the services the session client registered with
// NewServer. It wraps a single pre-established net.Conn the same way
// Server does, just from the dialer's side.
type Client struct {
	cc *grpc.ClientConn
}

// Dial builds a grpc.ClientConn over conn, consuming it exactly once. A
// second dial attempt against the returned Client fails: a session tunnel
// is a single connection, not a pool.
func Dial(conn net.Conn) (*Client, error) {
	var used sync.Once
	dialer := func(ctx context.Context, _ string) (net.Conn, error) {
		var out net.Conn
		used.Do(func() { out = conn })
		if out == nil {
			return nil, errors.New("tunnel: connection already consumed")
		}
		return out, nil
	}

	cc, err := grpc.NewClient("passthrough:///session-tunnel",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wire.Codec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("tunnel: dial: %w", err)
	}
	return &Client{cc: cc}, nil
}

// Close tears down the underlying grpc.ClientConn.
func (c *Client) Close() error {
	return c.cc.Close()
}

var diffCopyClientStreamDesc = grpc.StreamDesc{
	StreamName:    "DiffCopy",
	ServerStreams: true,
	ClientStreams: true,
}

// OpenDiffCopy starts a DiffCopy call and returns an io.Writer/io.Reader
// pair ready for diffcopy.NewClient. dirName/followPaths are sent as
// outgoing grpc metadata, matching how the server side reads them.
func (c *Client) OpenDiffCopy(ctx context.Context, dirName string, followPaths []string) (io.Writer, io.Reader, error) {
	md := metadata.MD{}
	if dirName != "" {
		md.Set("dir-name", dirName)
	}
	if len(followPaths) > 0 {
		md.Set("followpaths", followPaths...)
	}
	ctx = metadata.NewOutgoingContext(ctx, md)

	stream, err := c.cc.NewStream(ctx, &diffCopyClientStreamDesc, "/moby.filesync.v1.FileSync/DiffCopy")
	if err != nil {
		return nil, nil, fmt.Errorf("tunnel: open DiffCopy stream: %w", err)
	}
	return &streamWriter{stream: stream}, &streamReader{stream: stream}, nil
}

// Credentials calls moby.filesync.v1.Auth/Credentials.
func (c *Client) Credentials(ctx context.Context, req *wire.CredentialsRequest) (*wire.CredentialsResponse, error) {
	resp := &wire.CredentialsResponse{}
	if err := c.cc.Invoke(ctx, "/moby.filesync.v1.Auth/Credentials", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// FetchToken calls moby.filesync.v1.Auth/FetchToken.
func (c *Client) FetchToken(ctx context.Context, req *wire.FetchTokenRequest) (*wire.FetchTokenResponse, error) {
	resp := &wire.FetchTokenResponse{}
	if err := c.cc.Invoke(ctx, "/moby.filesync.v1.Auth/FetchToken", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetTokenAuthority calls moby.filesync.v1.Auth/GetTokenAuthority.
func (c *Client) GetTokenAuthority(ctx context.Context, req *wire.GetTokenAuthorityRequest) (*wire.GetTokenAuthorityResponse, error) {
	resp := &wire.GetTokenAuthorityResponse{}
	if err := c.cc.Invoke(ctx, "/moby.filesync.v1.Auth/GetTokenAuthority", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// VerifyTokenAuthority calls moby.filesync.v1.Auth/VerifyTokenAuthority.
func (c *Client) VerifyTokenAuthority(ctx context.Context, req *wire.VerifyTokenAuthorityRequest) (*wire.VerifyTokenAuthorityResponse, error) {
	resp := &wire.VerifyTokenAuthorityResponse{}
	if err := c.cc.Invoke(ctx, "/moby.filesync.v1.Auth/VerifyTokenAuthority", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Health calls grpc.health.v1.Health/Check, matching the dispatch table's
// always-SERVING unary handler.
func (c *Client) Health(ctx context.Context, req *wire.HealthCheckRequest) (*wire.HealthCheckResponse, error) {
	resp := &wire.HealthCheckResponse{}
	if err := c.cc.Invoke(ctx, "/grpc.health.v1.Health/Check", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetSecret calls moby.secrets.v1.Secrets/GetSecret.
func (c *Client) GetSecret(ctx context.Context, req *wire.GetSecretRequest) (*wire.GetSecretResponse, error) {
	resp := &wire.GetSecretResponse{}
	if err := c.cc.Invoke(ctx, "/moby.secrets.v1.Secrets/GetSecret", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
