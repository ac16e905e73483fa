package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/imgbuild/imgbuild/pkg/session/tunnel"
	"github.com/imgbuild/imgbuild/pkg/wire"
)

// controlClient is the daemon-facing half of moby.buildkit.v1.Control:
// the three RPCs the build driver (C9) needs, called directly against
// the grpc.ClientConn without a protoc-generated stub, exactly as
// pkg/session/tunnel.Client does for the session-side services.
type controlClient struct {
	cc *grpc.ClientConn
}

var sessionStreamDesc = grpc.StreamDesc{
	StreamName:    "Session",
	ServerStreams: true,
	ClientStreams: true,
}

var statusStreamDesc = grpc.StreamDesc{
	StreamName:    "Status",
	ServerStreams: true,
}

// openSession opens the Control/Session bidi stream carrying the session
// identity's metadata and returns it wrapped as a net.Conn, ready for
// session.Session.Run.
func (c *controlClient) openSession(ctx context.Context, md map[string]string) (net.Conn, error) {
	ctx = metadata.NewOutgoingContext(ctx, metadata.New(md))
	stream, err := c.cc.NewStream(ctx, &sessionStreamDesc, "/moby.buildkit.v1.Control/Session")
	if err != nil {
		return nil, fmt.Errorf("build: open Control/Session: %w", err)
	}
	return tunnel.NewDuplexConn(stream, stream.CloseSend), nil
}

// solve submits one SolveRequest and waits for its SolveResponse.
func (c *controlClient) solve(ctx context.Context, req *wire.SolveRequest) (*wire.SolveResponse, error) {
	resp := &wire.SolveResponse{}
	if err := c.cc.Invoke(ctx, "/moby.buildkit.v1.Control/Solve", req, resp); err != nil {
		return nil, fmt.Errorf("build: Control/Solve: %w", err)
	}
	return resp, nil
}

// status subscribes to the daemon's progress stream for ref and invokes
// onEvent for each batch until the daemon closes the stream.
func (c *controlClient) status(ctx context.Context, ref string, onEvent func(*wire.StatusResponse)) error {
	stream, err := c.cc.NewStream(ctx, &statusStreamDesc, "/moby.buildkit.v1.Control/Status")
	if err != nil {
		return fmt.Errorf("build: open Control/Status: %w", err)
	}
	if err := stream.SendMsg(&wire.StatusRequest{Ref: ref}); err != nil {
		return fmt.Errorf("build: send Control/Status request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("build: close Control/Status send side: %w", err)
	}

	for {
		resp := &wire.StatusResponse{}
		if err := stream.RecvMsg(resp); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		onEvent(resp)
	}
}
