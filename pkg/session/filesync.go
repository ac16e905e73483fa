package session

import (
	"context"
	"errors"
	"io"

	"github.com/imgbuild/imgbuild/pkg/session/diffcopy"
	"github.com/imgbuild/imgbuild/pkg/session/fsutil"
)

// FileSyncHandler implements tunnel.FileSyncHandler (C6's sibling, C4's
// transport-facing half): for every DiffCopy call, it walks the context
// root fresh and hands the listing to diffcopy.Serve. Per the session's
// resource model, the file table produced by each walk belongs to
// exactly that one call and is never shared across calls.
type FileSyncHandler struct {
	// Root is the local build-context directory.
	Root string
	// ExcludePatterns is the .dockerignore-style exclude list applied to
	// every walk.
	ExcludePatterns []string
}

// DiffCopy walks Root (scoped by followPaths when the daemon requests a
// narrower sync) and serves the DiffCopy state machine over w/r.
func (h *FileSyncHandler) DiffCopy(ctx context.Context, w io.Writer, r io.Reader, dirName string, followPaths []string) error {
	entries, err := fsutil.Walk(h.Root, fsutil.WalkOptions{
		FollowPaths:     followPaths,
		ExcludePatterns: h.ExcludePatterns,
	})
	if err != nil {
		return walkSessionError(err)
	}

	if err := diffcopy.Serve(w, r, entries, dirName, followPaths); err != nil {
		var notFound *diffcopy.PathNotFoundError
		if errors.As(err, &notFound) {
			return NewSessionError(KindPathNotFound, "dockerfile-only diffcopy call", err)
		}
		return NewSessionError(KindStreamError, "serve diffcopy call", err)
	}
	return nil
}

// walkSessionError classifies an fsutil.Walk failure into the matching
// SessionError Kind: a malformed root is NotADirectory, anything else
// (a directory enumeration failing mid-walk) is the catch-all
// PathResolution, distinguished from NotADirectory by type even though
// both currently map to a coarser Kind than fsutil itself tracks.
func walkSessionError(err error) error {
	var notADir *fsutil.NotADirectoryError
	if errors.As(err, &notADir) {
		return NewSessionError(KindNotADirectory, "walk context root", err)
	}
	return NewSessionError(KindPathResolution, "walk context root", err)
}
