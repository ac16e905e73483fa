package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

func TestGetSecretFound(t *testing.T) {
	h := NewHandler(map[string][]byte{"mysecret": []byte("topsecret")})

	resp, err := h.GetSecret(context.Background(), &wire.GetSecretRequest{ID: "mysecret"})
	require.NoError(t, err)
	assert.Equal(t, []byte("topsecret"), resp.Data)
}

func TestGetSecretNotFound(t *testing.T) {
	h := NewHandler(map[string][]byte{"mysecret": []byte("topsecret")})

	_, err := h.GetSecret(context.Background(), &wire.GetSecretRequest{ID: "missing"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGetSecretFallsBackToOldField(t *testing.T) {
	h := NewHandler(map[string][]byte{"legacy": []byte("data")})

	resp, err := h.GetSecret(context.Background(), &wire.GetSecretRequest{Old: "legacy"})
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), resp.Data)
}

func TestGetSecretsNotConfigured(t *testing.T) {
	h := NewHandler(nil)

	_, err := h.GetSecret(context.Background(), &wire.GetSecretRequest{ID: "anything"})
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}
