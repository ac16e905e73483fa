// Package diffcopy drives BuildKit's DiffCopy file-sync state machine:
// the STAT listing phase, the REQ/DATA file transfer phase, and the
// terminating FIN handshake. It operates purely over an io.Reader/Writer
// pair carrying framed wire.Packet messages, so it's agnostic to whether
// that pair is backed by a grpc stream, an in-memory pipe (as in its own
// tests), or anything else pkg/session/tunnel adapts into one.
//
// Grounded on BuildKit's session/filesync send.go/receive.go state machine
// and on the reference implementation's diffcopy.rs, which this package
// reimplements with Go's io.Reader/Writer in place of h2 SendStream/RecvStream.
package diffcopy

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/imgbuild/imgbuild/pkg/session/fsutil"
	"github.com/imgbuild/imgbuild/pkg/wire"
)

const dataChunkSize = 32 * 1024

// PathNotFoundError reports that dockerfile-only mode's target file was
// absent from the walked entries. Kept as its own type (rather than a
// bare fmt.Errorf) so pkg/session can distinguish it from every other
// Serve failure without pkg/session/diffcopy importing pkg/session
// (which would cycle back through pkg/session/filesync.go).
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("diffcopy: %q not found", e.Path)
}

// Serve runs the server side of one DiffCopy call: it sends a STAT packet
// per entry (already depth-first and alphabetically sorted by fsutil.Walk),
// a terminating empty STAT, then answers REQ packets with DATA packets
// until the peer sends FIN, at which point it sends its own FIN and
// returns.
//
// dirName selects BuildKit's "send only the Dockerfile" mode when it
// equals "dockerfile": only the single named entry is sent, matching
// BuildKit's filesync behavior for frontend-config-only requests.
// followPaths is consulted in that mode only to name an alternate
// Dockerfile (see dockerfileOnly); full-context mode already applied it
// as fsutil.WalkOptions.FollowPaths before entries reached Serve.
func Serve(w io.Writer, r io.Reader, entries []fsutil.Entry, dirName string, followPaths []string) error {
	fileMap := map[uint32]string{}

	if dirName == "dockerfile" {
		var err error
		entries, err = dockerfileOnly(entries, followPaths)
		if err != nil {
			return err
		}
	}

	var id uint32
	for _, e := range entries {
		pkt := &wire.Packet{Type: wire.PacketStat, ID: id, Stat: e.Stat}
		if err := writePacket(w, pkt); err != nil {
			return fmt.Errorf("diffcopy: send stat for %q: %w", e.Path, err)
		}
		if !e.IsDir {
			fileMap[id] = e.FullPath
		}
		id++
	}

	if err := writePacket(w, &wire.Packet{Type: wire.PacketStat}); err != nil {
		return fmt.Errorf("diffcopy: send terminating stat: %w", err)
	}

	if err := serveRequests(w, r, fileMap); err != nil {
		return err
	}

	return writePacket(w, &wire.Packet{Type: wire.PacketFin})
}

// dockerfileOnly narrows a full listing down to the single entry
// BuildKit's dir-name=dockerfile frontend-only request wants:
// followPaths[0] when it names an alternate Dockerfile (ends in
// ".Dockerfile"), else the default "Dockerfile". A target absent from
// entries fails the call with PathNotFoundError rather than silently
// serving an empty listing.
func dockerfileOnly(entries []fsutil.Entry, followPaths []string) ([]fsutil.Entry, error) {
	name := "Dockerfile"
	if len(followPaths) > 0 && strings.HasSuffix(followPaths[0], ".Dockerfile") {
		name = followPaths[0]
	}

	for _, e := range entries {
		if e.Path == name {
			return []fsutil.Entry{e}, nil
		}
	}
	return nil, &PathNotFoundError{Path: name}
}

func serveRequests(w io.Writer, r io.Reader, fileMap map[uint32]string) error {
	var buf []byte
	chunk := make([]byte, 64*1024)
	eof := false

	for {
		pkt := &wire.Packet{}
		rest, err := wire.DecodeFrame(buf, pkt)
		if err != nil {
			return fmt.Errorf("diffcopy: decode request packet: %w", err)
		}
		if len(rest) == len(buf) {
			// no full frame buffered yet
			if eof {
				return nil
			}
			n, readErr := r.Read(chunk)
			if n > 0 {
				buf = append(buf, chunk[:n]...)
			}
			if readErr != nil {
				if readErr != io.EOF {
					return fmt.Errorf("diffcopy: read request stream: %w", readErr)
				}
				eof = true
			}
			continue
		}
		buf = rest

		switch pkt.Type {
		case wire.PacketReq:
			path, ok := fileMap[pkt.ID]
			if !ok {
				continue
			}
			if err := sendFileData(w, pkt.ID, path); err != nil {
				return fmt.Errorf("diffcopy: send data for id %d: %w", pkt.ID, err)
			}
		case wire.PacketFin:
			return nil
		}
	}
}

func sendFileData(w io.Writer, id uint32, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, dataChunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if werr := writePacket(w, &wire.Packet{Type: wire.PacketData, ID: id, Data: append([]byte(nil), buf[:n]...)}); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	// empty DATA packet marks end-of-file for this id
	return writePacket(w, &wire.Packet{Type: wire.PacketData, ID: id})
}

func writePacket(w io.Writer, pkt *wire.Packet) error {
	frame, err := wire.EncodeFrame(pkt)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}
