package diffcopy

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imgbuild/imgbuild/pkg/session/fsutil"
	"github.com/imgbuild/imgbuild/pkg/wire"
)

// pipePair wires a Serve call's writer/reader to a Client's reader/writer
// through in-memory pipes, the same shape pkg/session/tunnel presents over
// an actual grpc stream.
func pipePair() (serverW io.Writer, serverR io.Reader, clientW io.Writer, clientR io.Reader) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	return respW, reqR, reqW, respR
}

// rawReader reads individual wire.Packet frames off r without the
// aggregation Client.RequestFile does, so a test can assert the exact
// sequence of DATA frame sizes a chunked transfer produced.
type rawReader struct {
	r   io.Reader
	buf []byte
}

func (rr *rawReader) next() (*wire.Packet, error) {
	chunk := make([]byte, 64*1024)
	for {
		pkt := &wire.Packet{}
		rest, err := wire.DecodeFrame(rr.buf, pkt)
		if err != nil {
			return nil, err
		}
		if len(rest) != len(rr.buf) {
			rr.buf = rest
			return pkt, nil
		}
		n, readErr := rr.r.Read(chunk)
		if n > 0 {
			rr.buf = append(rr.buf, chunk[:n]...)
			continue
		}
		if readErr != nil {
			return nil, readErr
		}
	}
}

func TestDiffCopyFullExchange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Dockerfile"), []byte("FROM scratch\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "main.go"), []byte("package main\n"), 0o644))

	entries, err := fsutil.Walk(root, fsutil.WalkOptions{})
	require.NoError(t, err)

	serverW, serverR, clientW, clientR := pipePair()

	var wg sync.WaitGroup
	wg.Add(1)
	var serveErr error
	go func() {
		defer wg.Done()
		serveErr = Serve(serverW, serverR, entries, "", nil)
	}()

	client := NewClient(clientW, clientR)
	stats, err := client.ReadStats()
	require.NoError(t, err)
	require.Len(t, stats, len(entries))

	var fileIDs []uint32
	for i, pkt := range stats {
		if !entries[i].IsDir {
			fileIDs = append(fileIDs, pkt.ID)
		}
	}
	require.NotEmpty(t, fileIDs)

	contents := map[string][]byte{}
	for i, pkt := range stats {
		if entries[i].IsDir {
			continue
		}
		data, err := client.RequestFile(pkt.ID)
		require.NoError(t, err)
		contents[pkt.Stat.Path] = data
	}

	require.NoError(t, client.Finish())
	wg.Wait()
	require.NoError(t, serveErr)

	require.Equal(t, []byte("FROM scratch\n"), contents["Dockerfile"])
	require.Equal(t, []byte("package main\n"), contents["app/main.go"])
}

func TestDiffCopyDockerfileOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Dockerfile"), []byte("FROM scratch\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.txt"), []byte("ignored"), 0o644))

	entries, err := fsutil.Walk(root, fsutil.WalkOptions{})
	require.NoError(t, err)

	serverW, serverR, clientW, clientR := pipePair()

	var wg sync.WaitGroup
	wg.Add(1)
	var serveErr error
	go func() {
		defer wg.Done()
		serveErr = Serve(serverW, serverR, entries, "dockerfile", nil)
	}()

	client := NewClient(clientW, clientR)
	stats, err := client.ReadStats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "Dockerfile", stats[0].Stat.Path)

	require.NoError(t, client.Finish())
	wg.Wait()
	require.NoError(t, serveErr)
}

// TestDiffCopyDockerfileOnlyCustomName exercises followpaths[0] naming an
// alternate Dockerfile: dockerfile-only mode must serve that entry instead
// of falling back to the literal "Dockerfile".
func TestDiffCopyDockerfileOnlyCustomName(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Dockerfile"), []byte("FROM scratch\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "release.Dockerfile"), []byte("FROM alpine\n"), 0o644))

	entries, err := fsutil.Walk(root, fsutil.WalkOptions{})
	require.NoError(t, err)

	serverW, serverR, clientW, clientR := pipePair()

	var wg sync.WaitGroup
	wg.Add(1)
	var serveErr error
	go func() {
		defer wg.Done()
		serveErr = Serve(serverW, serverR, entries, "dockerfile", []string{"release.Dockerfile"})
	}()

	client := NewClient(clientW, clientR)
	stats, err := client.ReadStats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.Equal(t, "release.Dockerfile", stats[0].Stat.Path)

	data, err := client.RequestFile(stats[0].ID)
	require.NoError(t, err)
	require.Equal(t, []byte("FROM alpine\n"), data)

	require.NoError(t, client.Finish())
	wg.Wait()
	require.NoError(t, serveErr)
}

// TestDiffCopyDockerfileOnlyMissing asserts that a dockerfile-only call
// whose target is absent from the walked entries fails with
// PathNotFoundError instead of silently serving an empty listing.
func TestDiffCopyDockerfileOnlyMissing(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.txt"), []byte("ignored"), 0o644))

	entries, err := fsutil.Walk(root, fsutil.WalkOptions{})
	require.NoError(t, err)

	serverW, _, _, _ := pipePair()

	err = Serve(serverW, new(bytes.Buffer), entries, "dockerfile", nil)
	require.Error(t, err)
	var notFound *PathNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "Dockerfile", notFound.Path)
}

// TestDiffCopyDockerfileOnlyMissingCustomName is the same missing-target
// case, but for a followpaths[0]-named alternate Dockerfile rather than the
// literal default.
func TestDiffCopyDockerfileOnlyMissingCustomName(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Dockerfile"), []byte("FROM scratch\n"), 0o644))

	entries, err := fsutil.Walk(root, fsutil.WalkOptions{})
	require.NoError(t, err)

	serverW, _, _, _ := pipePair()

	err = Serve(serverW, new(bytes.Buffer), entries, "dockerfile", []string{"release.Dockerfile"})
	require.Error(t, err)
	var notFound *PathNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "release.Dockerfile", notFound.Path)
}

// TestDiffCopySendFileDataChunking exercises spec.md's chunked-DATA
// scenario: a file spanning the 32KiB dataChunkSize boundary must be sent
// as a sequence of full-size chunks, one short final chunk, then one empty
// DATA frame marking end-of-file, all tagged with the requested id.
func TestDiffCopySendFileDataChunking(t *testing.T) {
	root := t.TempDir()
	const size = 70*1024 + 7
	content := bytes.Repeat([]byte{'a'}, size)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Dockerfile"), content, 0o644))

	entries, err := fsutil.Walk(root, fsutil.WalkOptions{})
	require.NoError(t, err)

	serverW, serverR, clientW, clientR := pipePair()

	var wg sync.WaitGroup
	wg.Add(1)
	var serveErr error
	go func() {
		defer wg.Done()
		serveErr = Serve(serverW, serverR, entries, "", nil)
	}()

	client := NewClient(clientW, clientR)
	stats, err := client.ReadStats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	id := stats[0].ID

	require.NoError(t, client.writePacket(&wire.Packet{Type: wire.PacketReq, ID: id}))

	rr := &rawReader{r: clientR}
	var sizes []int
	var assembled []byte
	for {
		pkt, err := rr.next()
		require.NoError(t, err)
		require.Equal(t, wire.PacketData, pkt.Type)
		require.Equal(t, id, pkt.ID)
		sizes = append(sizes, len(pkt.Data))
		if len(pkt.Data) == 0 {
			break
		}
		assembled = append(assembled, pkt.Data...)
	}

	require.Equal(t, []int{32 * 1024, 32 * 1024, 6151, 0}, sizes)
	require.Equal(t, content, assembled)

	require.NoError(t, client.Finish())
	wg.Wait()
	require.NoError(t, serveErr)
}

func TestDiffCopyEmptyDirectory(t *testing.T) {
	root := t.TempDir()

	entries, err := fsutil.Walk(root, fsutil.WalkOptions{})
	require.NoError(t, err)
	require.Empty(t, entries)

	serverW, serverR, clientW, clientR := pipePair()

	var wg sync.WaitGroup
	wg.Add(1)
	var serveErr error
	go func() {
		defer wg.Done()
		serveErr = Serve(serverW, serverR, entries, "", nil)
	}()

	client := NewClient(clientW, clientR)
	stats, err := client.ReadStats()
	require.NoError(t, err)
	require.Empty(t, stats)

	require.NoError(t, client.Finish())
	wg.Wait()
	require.NoError(t, serveErr)
}
