// Package tunnel turns the single bidirectional byte stream that carries a
// session attachable (the outer Control/Session grpc stream, adapted to a
// net.Conn by NewDuplexConn) into
// something grpc.Server and grpc.ClientConn can speak over, without a
// protoc-generated stub on either side: the services documented in
// pkg/wire are registered by hand as grpc.ServiceDesc values, and
// wire.Codec stands in for the protobuf runtime's reflection-based codec.
//
// Grounded on moby/buildkit's session package, which runs its own nested
// grpc.Server/grpc.ClientConn pair over the single stream a session
// attachable dials.
package tunnel

import (
	"errors"
	"net"
	"sync"
)

// singleConnListener is a net.Listener that yields exactly one
// already-established net.Conn to its first Accept call, then blocks until
// Close. grpc.Server wants a net.Listener; a session tunnel only ever has
// one underlying connection to serve, so there's no real listening socket
// behind it.
type singleConnListener struct {
	conn net.Conn
	addr net.Addr

	once   sync.Once
	accept chan net.Conn
	closed chan struct{}
}

func newSingleConnListener(conn net.Conn) *singleConnListener {
	l := &singleConnListener{
		conn:   conn,
		addr:   conn.LocalAddr(),
		accept: make(chan net.Conn, 1),
		closed: make(chan struct{}),
	}
	l.accept <- conn
	return l
}

func (l *singleConnListener) Accept() (net.Conn, error) {
	select {
	case conn, ok := <-l.accept:
		if !ok {
			return nil, errors.New("tunnel: listener already accepted its one connection")
		}
		return conn, nil
	case <-l.closed:
		return nil, errors.New("tunnel: listener closed")
	}
}

func (l *singleConnListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *singleConnListener) Addr() net.Addr {
	return l.addr
}
