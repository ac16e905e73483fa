package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

func TestCredentialsExactMatch(t *testing.T) {
	h := NewHandler([]RegistryCredential{
		{Host: "registry.example.com", Username: "alice", Password: "s3cret"},
	})

	resp, err := h.Credentials(context.Background(), &wire.CredentialsRequest{Host: "registry.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "s3cret", resp.Secret)
}

func TestCredentialsSubstringMatch(t *testing.T) {
	h := NewHandler([]RegistryCredential{
		{Host: "example.com", Username: "bob", Password: "pw"},
	})

	resp, err := h.Credentials(context.Background(), &wire.CredentialsRequest{Host: "registry.example.com:5000"})
	require.NoError(t, err)
	assert.Equal(t, "bob", resp.Username)
}

func TestCredentialsDockerIOAlias(t *testing.T) {
	h := NewHandler([]RegistryCredential{
		{Host: "docker.io", Username: "carol", Password: "pw"},
	})

	for _, host := range []string{"registry-1.docker.io", "index.docker.io"} {
		resp, err := h.Credentials(context.Background(), &wire.CredentialsRequest{Host: host})
		require.NoError(t, err)
		assert.Equal(t, "carol", resp.Username, "host %s", host)
	}
}

func TestCredentialsNoMatchReturnsEmptyNotError(t *testing.T) {
	h := NewHandler(nil)

	resp, err := h.Credentials(context.Background(), &wire.CredentialsRequest{Host: "unknown.example.com"})
	require.NoError(t, err)
	assert.Empty(t, resp.Username)
	assert.Empty(t, resp.Secret)
}

func TestFetchTokenAlwaysEmpty(t *testing.T) {
	h := NewHandler(nil)
	resp, err := h.FetchToken(context.Background(), &wire.FetchTokenRequest{Host: "registry.example.com"})
	require.NoError(t, err)
	assert.Empty(t, resp.Token)
}

func TestGetTokenAuthorityUnimplemented(t *testing.T) {
	h := NewHandler(nil)
	_, err := h.GetTokenAuthority(context.Background(), &wire.GetTokenAuthorityRequest{Host: "registry.example.com"})
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestVerifyTokenAuthorityEmptySignature(t *testing.T) {
	h := NewHandler(nil)
	resp, err := h.VerifyTokenAuthority(context.Background(), &wire.VerifyTokenAuthorityRequest{Host: "x", Payload: []byte("nonce")})
	require.NoError(t, err)
	assert.Empty(t, resp.Signed)
}
