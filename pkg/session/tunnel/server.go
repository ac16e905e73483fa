package tunnel

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

func init() {
	// Registering under "proto" shadows the real protobuf codec for this
	// process. Every message exchanged over a session tunnel is a
	// pkg/wire type, never a generated proto.Message, so there's no
	// conflict in practice.
	encoding.RegisterCodec(wire.Codec{})
}

// Server hosts the attachable services (FileSync, Auth, Secrets) a build
// session exposes to the daemon, wired over one pre-established
// connection rather than a listening socket.
type Server struct {
	grpcServer *grpc.Server
}

// NewServer builds a Server with the given handlers wired in. A nil
// handler simply leaves that service unregistered. The health service is
// always registered.
func NewServer(fileSync FileSyncHandler, auth AuthHandler, secrets SecretsHandler) *Server {
	s := grpc.NewServer(grpc.ForceServerCodec(wire.Codec{}))
	s.RegisterService(&healthServiceDesc, healthServer{})
	if fileSync != nil {
		s.RegisterService(&fileSyncServiceDesc, fileSync)
	}
	if auth != nil {
		s.RegisterService(&authServiceDesc, auth)
	}
	if secrets != nil {
		s.RegisterService(&secretsServiceDesc, secrets)
	}
	return &Server{grpcServer: s}
}

// Serve runs the grpc server over conn until the server is stopped. The
// peer closing conn ends that connection but does not make Serve return;
// only Stop does. It never returns a listener-exhaustion error: conn is
// consumed exactly once.
func (s *Server) Serve(conn net.Conn) error {
	return s.grpcServer.Serve(newSingleConnListener(conn))
}

// Stop stops the underlying grpc server immediately, closing the
// connection and canceling any in-flight DiffCopy/Auth/Secrets calls.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}
