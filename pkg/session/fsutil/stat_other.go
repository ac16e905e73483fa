//go:build !unix

package fsutil

import (
	"os"

	"github.com/imgbuild/imgbuild/pkg/session/filemode"
)

func sysStat(fi os.FileInfo) (uid, gid uint32, devmajor, devminor uint64, mode filemode.UnixMode, ok bool) {
	return 0, 0, 0, 0, 0, false
}
