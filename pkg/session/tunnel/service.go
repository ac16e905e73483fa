package tunnel

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

// FileSyncHandler serves the moby.filesync.v1.FileSync service: the
// DiffCopy bidirectional stream that lists and transfers a build context.
type FileSyncHandler interface {
	// DiffCopy drives one DiffCopy call end to end over the adapted
	// stream. dirName and followPaths come from the call's incoming
	// metadata, mirroring how BuildKit passes them as grpc-metadata
	// headers rather than as part of the message stream.
	DiffCopy(ctx context.Context, w io.Writer, r io.Reader, dirName string, followPaths []string) error
}

// AuthHandler serves moby.filesync.v1.Auth: registry credential lookup
// and token exchange for private image pulls/pushes during a build.
type AuthHandler interface {
	Credentials(ctx context.Context, req *wire.CredentialsRequest) (*wire.CredentialsResponse, error)
	FetchToken(ctx context.Context, req *wire.FetchTokenRequest) (*wire.FetchTokenResponse, error)
	GetTokenAuthority(ctx context.Context, req *wire.GetTokenAuthorityRequest) (*wire.GetTokenAuthorityResponse, error)
	VerifyTokenAuthority(ctx context.Context, req *wire.VerifyTokenAuthorityRequest) (*wire.VerifyTokenAuthorityResponse, error)
}

// SecretsHandler serves moby.secrets.v1.Secrets: on-demand delivery of
// build secrets requested by a Dockerfile's --mount=type=secret.
type SecretsHandler interface {
	GetSecret(ctx context.Context, req *wire.GetSecretRequest) (*wire.GetSecretResponse, error)
}

func metadataValues(ctx context.Context, key string) []string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}
	return md.Get(key)
}

func metadataValue(ctx context.Context, key string) string {
	vs := metadataValues(ctx, key)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func diffCopyHandler(srv any, stream grpc.ServerStream) error {
	h := srv.(FileSyncHandler)
	ctx := stream.Context()
	dirName := metadataValue(ctx, "dir-name")
	followPaths := metadataValues(ctx, "followpaths")
	w := &streamWriter{stream: stream}
	r := &streamReader{stream: stream}
	return h.DiffCopy(ctx, w, r, dirName, followPaths)
}

var fileSyncServiceDesc = grpc.ServiceDesc{
	ServiceName: "moby.filesync.v1.FileSync",
	HandlerType: (*FileSyncHandler)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "DiffCopy",
			Handler:       diffCopyHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
}

func authCredentialsHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &wire.CredentialsRequest{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(AuthHandler).Credentials(ctx, req)
}

func authFetchTokenHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &wire.FetchTokenRequest{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(AuthHandler).FetchToken(ctx, req)
}

func authGetTokenAuthorityHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &wire.GetTokenAuthorityRequest{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(AuthHandler).GetTokenAuthority(ctx, req)
}

func authVerifyTokenAuthorityHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &wire.VerifyTokenAuthorityRequest{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(AuthHandler).VerifyTokenAuthority(ctx, req)
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: "moby.filesync.v1.Auth",
	HandlerType: (*AuthHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Credentials", Handler: authCredentialsHandler},
		{MethodName: "FetchToken", Handler: authFetchTokenHandler},
		{MethodName: "GetTokenAuthority", Handler: authGetTokenAuthorityHandler},
		{MethodName: "VerifyTokenAuthority", Handler: authVerifyTokenAuthorityHandler},
	},
}

func secretsGetSecretHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &wire.GetSecretRequest{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(SecretsHandler).GetSecret(ctx, req)
}

var secretsServiceDesc = grpc.ServiceDesc{
	ServiceName: "moby.secrets.v1.Secrets",
	HandlerType: (*SecretsHandler)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSecret", Handler: secretsGetSecretHandler},
	},
}

// healthServer answers grpc.health.v1.Health/Check with SERVING: a
// session tunnel that can dispatch the call at all is, by definition,
// up. There is no per-service health to report, since Serve tears the
// whole tunnel down on failure rather than degrading one service.
type healthServer struct{}

func (healthServer) Check(ctx context.Context, req *wire.HealthCheckRequest) (*wire.HealthCheckResponse, error) {
	return &wire.HealthCheckResponse{Status: wire.StatusServing}, nil
}

func healthCheckHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := &wire.HealthCheckRequest{}
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(interface {
		Check(context.Context, *wire.HealthCheckRequest) (*wire.HealthCheckResponse, error)
	}).Check(ctx, req)
}

var healthServiceDesc = grpc.ServiceDesc{
	ServiceName: "grpc.health.v1.Health",
	HandlerType: (*interface {
		Check(context.Context, *wire.HealthCheckRequest) (*wire.HealthCheckResponse, error)
	})(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Check", Handler: healthCheckHandler},
	},
}
