//go:build unix

package fsutil

import (
	"os"
	"syscall"

	"github.com/imgbuild/imgbuild/pkg/session/filemode"
)

func sysStat(fi os.FileInfo) (uid, gid uint32, devmajor, devminor uint64, mode filemode.UnixMode, ok bool) {
	st, isStat := fi.Sys().(*syscall.Stat_t)
	if !isStat {
		return 0, 0, 0, 0, 0, false
	}
	major, minor := unixDevNumbers(uint64(st.Rdev))
	return st.Uid, st.Gid, major, minor, filemode.UnixMode(st.Mode), true
}
