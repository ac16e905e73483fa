// Package build implements the build driver (C9): it submits the solve
// call carrying the session identity, runs the session tunnel for the
// call's lifetime, and dispatches the daemon's status stream to a
// progress.Handler. Everything deeper than "call the daemon and plumb
// the session" — argument parsing, request construction detail, TLS/retry
// policy — is out of scope per spec.md §1 and lives in main.go/pkg/config
// instead.
package build

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/imgbuild/imgbuild/pkg/progress"
	"github.com/imgbuild/imgbuild/pkg/session"
	"github.com/imgbuild/imgbuild/pkg/wire"
)

// Driver submits builds to one build-daemon endpoint.
type Driver struct {
	Endpoint string
}

// NewDriver builds a Driver dialing endpoint for every Run call.
func NewDriver(endpoint string) *Driver {
	return &Driver{Endpoint: endpoint}
}

// Result is what Run returns on success: the exporter's response
// metadata (e.g. the pushed image digest), mirroring wire.SolveResponse.
type Result struct {
	ExporterResponse map[string]string
}

// Run submits one build: it dials the daemon, opens the session tunnel,
// submits the solve request, and streams status events to progress until
// the solve completes or ctx is canceled.
func (d *Driver) Run(ctx context.Context, opts Options, sessionCfg session.Config, handler progress.Handler) (*Result, error) {
	cc, closer, err := Dial(ctx, d.Endpoint)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	defer cc.Close()

	control := &controlClient{cc: cc}

	sess := session.New(sessionCfg)

	frontendAttrs, err := opts.frontendAttrs()
	if err != nil {
		return nil, err
	}
	exporterType, exporterAttrs, err := opts.exporter()
	if err != nil {
		return nil, err
	}

	solveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(solveCtx)

	g.Go(func() error {
		conn, err := control.openSession(gctx, sess.Identity.Metadata())
		if err != nil {
			return fmt.Errorf("build: open session stream: %w", err)
		}
		if err := sess.Run(gctx, conn); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})

	var resp *wire.SolveResponse
	g.Go(func() error {
		defer cancel()

		statusCtx, statusCancel := context.WithCancel(gctx)
		defer statusCancel()

		statusErr := make(chan error, 1)
		if handler != nil {
			go func() {
				statusErr <- control.status(statusCtx, sess.Identity.UUID, handler.Handle)
			}()
		}

		req := &wire.SolveRequest{
			Ref:           sess.Identity.UUID,
			Exporter:      exporterType,
			ExporterAttrs: exporterAttrs,
			Session:       sess.Identity.UUID,
			Frontend:      "dockerfile.v0",
			FrontendAttrs: frontendAttrs,
			Cache:         opts.cacheOptions(),
		}

		var err error
		resp, err = control.solve(gctx, req)
		statusCancel()
		if handler != nil {
			<-statusErr
		}
		sess.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	if resp == nil {
		return &Result{}, nil
	}
	return &Result{ExporterResponse: resp.ExporterResponse}, nil
}
