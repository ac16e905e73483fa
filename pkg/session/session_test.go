package session

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgbuild/imgbuild/pkg/session/auth"
	"github.com/imgbuild/imgbuild/pkg/session/tunnel"
	"github.com/imgbuild/imgbuild/pkg/wire"
)

func TestNewIdentityNameEqualsSharedKey(t *testing.T) {
	id := NewIdentity()
	assert.Equal(t, id.Name, id.SharedKey)
	assert.NotEmpty(t, id.UUID)

	md := id.Metadata()
	assert.Equal(t, id.UUID, md["X-Docker-Expose-Session-Uuid"])
	assert.Equal(t, id.Name, md["X-Docker-Expose-Session-Name"])
	assert.Equal(t, id.SharedKey, md["X-Docker-Expose-Session-Sharedkey"])
}

func TestTwoIdentitiesAreDistinct(t *testing.T) {
	a := NewIdentity()
	b := NewIdentity()
	assert.NotEqual(t, a.UUID, b.UUID)
	assert.NotEqual(t, a.Name, b.Name)
}

func TestSessionRunServesCredentialsOverTunnel(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Dockerfile"), []byte("FROM scratch\n"), 0o644))

	sess := New(Config{
		ContextRoot: root,
		Registries:  []auth.RegistryCredential{{Host: "registry.example.com", Username: "u", Password: "p"}},
	})

	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx, serverConn) }()

	client, err := tunnel.Dial(clientConn)
	require.NoError(t, err)
	defer client.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()

	resp, err := client.Credentials(callCtx, &wire.CredentialsRequest{Host: "registry.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u", resp.Username)

	sess.Stop()
	select {
	case <-runErr:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop")
	}
}
