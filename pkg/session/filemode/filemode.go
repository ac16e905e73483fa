// Package filemode converts between POSIX mode_t values, as reported by
// syscall.Stat_t on the local filesystem, and the Go os.FileMode bit layout
// that fsutil's Stat records carry on the wire. The two encodings agree on
// the low 9 permission bits but disagree on everything above that, so a
// raw copy of st_mode into a wire.Stat would desync type bits between
// platforms.
package filemode

// POSIX file type and permission bits (struct stat st_mode).
const (
	typeMask   = 0o170000
	typeDir    = 0o040000
	typeReg    = 0o100000
	typeLink   = 0o120000
	typeFifo   = 0o010000
	typeSocket = 0o140000
	typeChar   = 0o020000
	typeBlock  = 0o060000

	permMask   = 0o7777
	bitsSetuid = 0o4000
	bitsSetgid = 0o2000
	bitsSticky = 0o1000
)

// Go os.FileMode high bits (see os.FileMode's doc comment).
const (
	goModeDir        = 1 << 31
	goModeSymlink    = 1 << 27
	goModeDevice     = 1 << 26
	goModeNamedPipe  = 1 << 25
	goModeSocket     = 1 << 24
	goModeSetuid     = 1 << 23
	goModeSetgid     = 1 << 22
	goModeCharDevice = 1 << 21
	goModeSticky     = 1 << 20
)

// UnixMode is a raw POSIX mode_t value, as read from syscall.Stat_t.Mode.
type UnixMode uint32

// GoMode is a raw Go os.FileMode value, as carried by a wire.Stat.
type GoMode uint32

// ToGo converts a POSIX mode_t into the Go os.FileMode bit layout fsutil
// uses on the wire.
func ToGo(mode UnixMode) GoMode {
	perm := uint32(mode) & permMask
	out := perm & 0o777

	if perm&bitsSetuid != 0 {
		out |= goModeSetuid
	}
	if perm&bitsSetgid != 0 {
		out |= goModeSetgid
	}
	if perm&bitsSticky != 0 {
		out |= goModeSticky
	}

	switch uint32(mode) & typeMask {
	case typeDir:
		out |= goModeDir
	case typeLink:
		out |= goModeSymlink
	case typeFifo:
		out |= goModeNamedPipe
	case typeSocket:
		out |= goModeSocket
	case typeChar:
		out |= goModeCharDevice | goModeDevice
	case typeBlock:
		out |= goModeDevice
	case typeReg:
		// no extra bit: Go marks only irregular files
	}

	return GoMode(out)
}

// ToUnix converts a Go os.FileMode value back into a POSIX mode_t,
// inverse to ToGo modulo the type bits ToUnix cannot recover (Go doesn't
// distinguish S_IFBLK from a plain device with goModeDevice set; ToUnix
// resolves that ambiguity to S_IFBLK since character devices always also
// carry goModeCharDevice).
func ToUnix(mode GoMode) UnixMode {
	out := uint32(mode) & 0o777

	if uint32(mode)&goModeSetuid != 0 {
		out |= bitsSetuid
	}
	if uint32(mode)&goModeSetgid != 0 {
		out |= bitsSetgid
	}
	if uint32(mode)&goModeSticky != 0 {
		out |= bitsSticky
	}

	switch {
	case uint32(mode)&goModeDir != 0:
		out |= typeDir
	case uint32(mode)&goModeSymlink != 0:
		out |= typeLink
	case uint32(mode)&goModeNamedPipe != 0:
		out |= typeFifo
	case uint32(mode)&goModeSocket != 0:
		out |= typeSocket
	case uint32(mode)&goModeCharDevice != 0:
		out |= typeChar
	case uint32(mode)&goModeDevice != 0:
		out |= typeBlock
	default:
		out |= typeReg
	}

	return UnixMode(out)
}
