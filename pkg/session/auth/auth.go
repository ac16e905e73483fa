// Package auth implements the credentials handler (C6): answering the
// build daemon's registry-login probes over the session tunnel without
// ever erroring for an unknown host — empty credentials mean anonymous
// access, not failure.
package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

// RegistryCredential is one entry in the credential table: a registry
// host pattern paired with the username/password to answer with.
type RegistryCredential struct {
	Host     string
	Username string
	Password string
}

// Handler answers moby.filesync.v1.Auth RPCs. It satisfies
// tunnel.AuthHandler. The zero value has no registered credentials and
// answers every Credentials call anonymously.
type Handler struct {
	registries []RegistryCredential
}

// NewHandler builds a Handler over a read-only credential table. Per the
// session manager's resource model, the table is never mutated after
// construction, so Handler needs no locking.
func NewHandler(registries []RegistryCredential) *Handler {
	return &Handler{registries: registries}
}

// Credentials looks up host using, in order: an exact match, then
// substring containment (host contains a registered host pattern), then
// the docker.io alias rule (registry-1.docker.io and index.docker.io
// both answer to a "docker.io" entry). No match returns empty
// credentials, never an error.
func (h *Handler) Credentials(ctx context.Context, req *wire.CredentialsRequest) (*wire.CredentialsResponse, error) {
	if cred, ok := h.find(req.Host); ok {
		return &wire.CredentialsResponse{Username: cred.Username, Secret: cred.Password}, nil
	}
	return &wire.CredentialsResponse{}, nil
}

func (h *Handler) find(host string) (RegistryCredential, bool) {
	for _, r := range h.registries {
		if r.Host == host {
			return r, true
		}
	}
	for _, r := range h.registries {
		if strings.Contains(host, r.Host) {
			return r, true
		}
	}
	for _, r := range h.registries {
		if r.Host == "docker.io" && (host == "registry-1.docker.io" || host == "index.docker.io") {
			return r, true
		}
	}
	return RegistryCredential{}, false
}

// FetchToken always returns an empty token: BuildKit token-exchange is
// out of scope here, so the daemon falls back to plain Credentials.
func (h *Handler) FetchToken(ctx context.Context, req *wire.FetchTokenRequest) (*wire.FetchTokenResponse, error) {
	return &wire.FetchTokenResponse{}, nil
}

// GetTokenAuthority responds Unimplemented so the daemon falls back to
// FetchToken/Credentials instead of OAuth-style token authority checks.
func (h *Handler) GetTokenAuthority(ctx context.Context, req *wire.GetTokenAuthorityRequest) (*wire.GetTokenAuthorityResponse, error) {
	return nil, status.Error(codes.Unimplemented, "auth: token authority not supported")
}

// VerifyTokenAuthority is never reached in practice since
// GetTokenAuthority always fails first, but answers with an empty
// signature rather than erroring, matching the reference client.
func (h *Handler) VerifyTokenAuthority(ctx context.Context, req *wire.VerifyTokenAuthorityRequest) (*wire.VerifyTokenAuthorityResponse, error) {
	return &wire.VerifyTokenAuthorityResponse{}, nil
}
