package tunnel

import (
	"net"
	"time"

	"google.golang.org/grpc"
)

// duplexConn adapts a grpc bidi stream (the outer moby.buildkit.v1.Control/
// Session call) into a net.Conn, so the nested RPC server/client this
// package implements can run over it exactly as it would over a raw TCP
// or unix socket connection. This is the "in-memory duplex net.Conn
// adapter" the tunnel design calls for: the stream's SendMsg/RecvMsg of
// BytesMessage frames become Write/Read.
type duplexConn struct {
	streamWriter
	streamReader
	closeSend func() error
}

// NewDuplexConn wraps stream as a net.Conn. closeSend, if non-nil, is
// called on Close (a grpc.ClientStream has CloseSend; a
// grpc.ServerStream has no equivalent, since it closes when its handler
// returns).
func NewDuplexConn(stream grpc.Stream, closeSend func() error) net.Conn {
	return &duplexConn{
		streamWriter: streamWriter{stream: stream},
		streamReader: streamReader{stream: stream},
		closeSend:    closeSend,
	}
}

func (c *duplexConn) Close() error {
	if c.closeSend != nil {
		return c.closeSend()
	}
	return nil
}

func (duplexConn) LocalAddr() net.Addr                { return tunnelAddr{} }
func (duplexConn) RemoteAddr() net.Addr               { return tunnelAddr{} }
func (duplexConn) SetDeadline(t time.Time) error      { return nil }
func (duplexConn) SetReadDeadline(t time.Time) error  { return nil }
func (duplexConn) SetWriteDeadline(t time.Time) error { return nil }

// tunnelAddr is a placeholder net.Addr: the underlying transport is a
// single grpc stream, which has no dialable address of its own.
type tunnelAddr struct{}

func (tunnelAddr) Network() string { return "session-tunnel" }
func (tunnelAddr) String() string  { return "session-tunnel" }

var _ net.Conn = (*duplexConn)(nil)
