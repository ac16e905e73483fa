package tunnel

import (
	"io"

	"google.golang.org/grpc"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

// streamWriter adapts a grpc.Stream's SendMsg into an io.Writer by
// wrapping each write in a BytesMessage. diffcopy.Serve/Client frame their
// own payload inside p, so the grpc message boundary doesn't need to align
// with a DiffCopy packet boundary.
type streamWriter struct {
	stream grpc.Stream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	msg := &wire.BytesMessage{Data: append([]byte(nil), p...)}
	if err := w.stream.SendMsg(msg); err != nil {
		return 0, err
	}
	return len(p), nil
}

// streamReader is streamWriter's inverse: it buffers the Data field of
// however many BytesMessages it takes to satisfy each Read.
type streamReader struct {
	stream grpc.Stream
	buf    []byte
}

func (r *streamReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		msg := &wire.BytesMessage{}
		if err := r.stream.RecvMsg(msg); err != nil {
			return 0, err
		}
		r.buf = msg.Data
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

var _ io.Writer = (*streamWriter)(nil)
var _ io.Reader = (*streamReader)(nil)
