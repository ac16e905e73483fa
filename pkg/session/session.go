// Package session implements the session manager (C8): generates a
// session identity, assembles the credentials/secrets/file-sync
// handlers, and runs the RPC tunnel for exactly one build's lifetime.
package session

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/imgbuild/imgbuild/pkg/session/auth"
	"github.com/imgbuild/imgbuild/pkg/session/secrets"
	"github.com/imgbuild/imgbuild/pkg/session/tunnel"
)

// Identity is the session's unique, build-scoped identity. Name and
// SharedKey are always equal, per the outer protocol's header contract.
type Identity struct {
	UUID      string
	Name      string
	SharedKey string
}

// NewIdentity generates a fresh Identity via google/uuid.
func NewIdentity() *Identity {
	name := "session-" + uuid.New().String()
	return &Identity{
		UUID:      uuid.New().String(),
		Name:      name,
		SharedKey: name,
	}
}

// Metadata returns the session-identity headers attached to the outer
// build submission.
func (id *Identity) Metadata() map[string]string {
	return map[string]string{
		"X-Docker-Expose-Session-Uuid":      id.UUID,
		"X-Docker-Expose-Session-Name":      id.Name,
		"X-Docker-Expose-Session-Sharedkey": id.SharedKey,
	}
}

// Config configures a Session's handlers.
type Config struct {
	// ContextRoot is the local build-context directory synced to the
	// daemon over DiffCopy.
	ContextRoot string
	// ExcludePatterns is the .dockerignore-style exclude list.
	ExcludePatterns []string
	// Registries is the credential table C6 answers from.
	Registries []auth.RegistryCredential
	// Secrets is the id→bytes table C7 answers from. A nil map means
	// "not configured".
	Secrets map[string][]byte
}

// Session owns one session identity, its handlers, and the tunnel
// bound to it. It spans exactly one build.
type Session struct {
	Identity *Identity

	server *tunnel.Server

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New assembles a Session's handlers from cfg but does not yet start
// the tunnel — call Run once the daemon opens the session stream.
func New(cfg Config) *Session {
	fileSync := &FileSyncHandler{Root: cfg.ContextRoot, ExcludePatterns: cfg.ExcludePatterns}
	authHandler := auth.NewHandler(cfg.Registries)
	secretsHandler := secrets.NewHandler(cfg.Secrets)

	return &Session{
		Identity: NewIdentity(),
		server:   tunnel.NewServer(fileSync, authHandler, secretsHandler),
	}
}

// Run starts the tunnel on conn and blocks until the caller cancels ctx
// or Stop is called; the daemon closing conn alone does not end it. It
// implements the "one
// accept task" half of the concurrency model: grpc-go's own server loop
// supplies the per-call goroutines.
func (s *Session) Run(ctx context.Context, conn net.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.server.Serve(conn)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.server.Stop()
		<-done
		return ctx.Err()
	}
}

// Stop cancels the session, tearing down the tunnel and every
// in-flight handler. Safe to call before Run, and safe to call twice.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	} else {
		s.server.Stop()
	}
}
