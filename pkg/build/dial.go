package build

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/imgbuild/imgbuild/pkg/session"
	"github.com/imgbuild/imgbuild/pkg/wire"
)

// noopCloser satisfies io.Closer for endpoints that need no teardown.
type noopCloser struct{}

func (noopCloser) Close() error { return nil }

// sshTunnel is a background `ssh -L` process forwarding the daemon's
// local unix socket; grounded on the teacher's TunneledDockerHost /
// handleSSHDockerHost (pkg/commands/docker.go), generalized from
// DOCKER_HOST to an arbitrary build-daemon endpoint.
type sshTunnel struct {
	SocketPath string
	cmd        *exec.Cmd
}

func (t *sshTunnel) Close() error {
	return killProcessGroup(t.cmd.Process.Pid)
}

// Dial connects to the build daemon at endpoint, which is one of
// tcp://host:port, unix:///path/to.sock, or ssh://host (forwarded to the
// daemon's socket at /run/buildkit/buildkitd.sock on the remote host).
// The returned io.Closer tears down any ssh tunnel process; it is a
// no-op for tcp/unix endpoints.
func Dial(ctx context.Context, endpoint string) (*grpc.ClientConn, io.Closer, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, nil, session.NewSessionError(session.KindInvalidEndpoint, "parse daemon endpoint", err)
	}

	var target string
	var closer io.Closer = noopCloser{}

	switch u.Scheme {
	case "tcp":
		target = "dns:///" + u.Host
	case "unix":
		target = "unix://" + u.Path
	case "ssh":
		tunnel, err := tunnelSSH(ctx, u.Host)
		if err != nil {
			return nil, nil, session.NewSessionError(session.KindConnection, "tunnel ssh build-daemon host", err)
		}
		target = "unix://" + tunnel.SocketPath
		closer = tunnel
	default:
		return nil, nil, session.NewSessionError(session.KindInvalidEndpoint, fmt.Sprintf("unsupported endpoint scheme %q", u.Scheme), nil)
	}

	cc, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(wire.Codec{})),
	)
	if err != nil {
		closer.Close()
		return nil, nil, session.NewSessionError(session.KindConnection, "dial build daemon", err)
	}
	return cc, closer, nil
}

func tunnelSSH(ctx context.Context, remoteHost string) (*sshTunnel, error) {
	socketDir, err := os.MkdirTemp("", "imgbuild-sshtunnel-")
	if err != nil {
		return nil, fmt.Errorf("create ssh tunnel tmp dir: %w", err)
	}
	localSocket := path.Join(socketDir, "buildkitd.sock")

	cmd := exec.CommandContext(ctx, "ssh", "-L", localSocket+":/run/buildkit/buildkitd.sock", remoteHost, "-N")
	cmd.SysProcAttr = sshProcAttr()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ssh tunnel: %w", err)
	}

	const socketTunnelTimeout = 8 * time.Second
	dialCtx, cancel := context.WithTimeout(ctx, socketTunnelTimeout)
	defer cancel()

	if err := retrySocketDial(dialCtx, localSocket); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("ssh tunneled socket never became available: %w", err)
	}

	return &sshTunnel{SocketPath: localSocket, cmd: cmd}, nil
}

func retrySocketDial(ctx context.Context, socketPath string) error {
	t := time.NewTicker(200 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if err := tryDial(ctx, socketPath); err == nil {
			return nil
		}
	}
}

func tryDial(ctx context.Context, socketPath string) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return err
	}
	return conn.Close()
}
