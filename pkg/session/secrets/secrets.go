// Package secrets implements the secrets handler (C7): answers the
// build daemon's GetSecret probes from an in-memory, read-only table
// built once at session start.
package secrets

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"context"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

// Handler answers moby.secrets.v1.Secrets/GetSecret. It satisfies
// tunnel.SecretsHandler.
type Handler struct {
	table map[string][]byte
}

// NewHandler builds a Handler over a read-only id→bytes table. A nil or
// empty table means "secrets not configured": every lookup then fails
// with SecretsNotConfigured rather than SecretNotFound, per the
// dispatch rule.
func NewHandler(table map[string][]byte) *Handler {
	return &Handler{table: table}
}

// GetSecret looks up req.ID (falling back to req.Old, a deprecated alias
// kept for wire compatibility with older daemons) in the table.
func (h *Handler) GetSecret(ctx context.Context, req *wire.GetSecretRequest) (*wire.GetSecretResponse, error) {
	if len(h.table) == 0 {
		return nil, status.Error(codes.Unimplemented, "secrets: not configured")
	}

	id := req.ID
	if id == "" {
		id = req.Old
	}

	data, ok := h.table[id]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "secrets: %q not found", id)
	}
	return &wire.GetSecretResponse{Data: data}, nil
}
