// Package fsutil builds the filesystem listing and per-entry Stat records
// that the DiffCopy protocol sends over the wire: a depth-first,
// alphabetically sorted walk of a build context directory, with optional
// followpaths and .dockerignore-style exclude filtering.
//
// Grounded on github.com/tonistiigi/fsutil's walker (send.go) and the
// moby/patternmatcher exclude semantics BuildKit itself uses for .dockerignore.
package fsutil

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/imgbuild/imgbuild/pkg/session/filemode"
	"github.com/imgbuild/imgbuild/pkg/wire"
)

// Entry is one filesystem object discovered by Walk, paired with the
// wire.Stat record ready to send.
type Entry struct {
	// Path is the slash-separated path relative to the walk root.
	Path string
	// FullPath is the absolute path on the local filesystem.
	FullPath string
	// IsDir reports whether this entry is a directory (and thus has no
	// file_map entry for REQ/DATA purposes).
	IsDir bool
	Stat  *wire.Stat
}

func statEntry(rel, full string, fi os.FileInfo) (*wire.Stat, error) {
	size := fi.Size()
	if fi.IsDir() {
		// fsutil protocol requirement: directory entries always report size 0.
		size = 0
	}

	// Symlinks are never followed and linkname is always left empty: this
	// walker reports the directory tree's shape, not link targets.
	st := &wire.Stat{
		Path:    filepath.ToSlash(rel),
		Size:    size,
		ModTime: fi.ModTime().UnixNano(),
	}

	uid, gid, devmajor, devminor, unixMode, hasSys := sysStat(fi)
	st.UID = uid
	st.GID = gid
	st.Devmajor = devmajor
	st.Devminor = devminor
	if hasSys {
		st.Mode = uint32(filemode.ToGo(unixMode))
	} else {
		st.Mode = uint32(fallbackGoMode(fi))
	}

	return st, nil
}

func fallbackGoMode(fi os.FileInfo) filemode.GoMode {
	if fi.IsDir() {
		return filemode.ToGo(0o040000 | 0o755)
	}
	return filemode.ToGo(0o100000 | 0o644)
}

// sortNames sorts directory entry names the way fsutil requires: plain
// byte-wise ascending, matching os.ReadDir's own default order so a second
// sort is usually a no-op but keeps the invariant explicit.
func sortNames(names []string) {
	sort.Strings(names)
}
