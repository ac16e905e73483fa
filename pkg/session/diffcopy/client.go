package diffcopy

import (
	"fmt"
	"io"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

// Client drives the requester side of one DiffCopy call: read the STAT
// listing, request individual files by id, and close out with FIN. It's
// used by this package's own tests, which stand in for BuildKit's fsutil
// receive.go.
type Client struct {
	w   io.Writer
	r   io.Reader
	buf []byte
}

// NewClient wraps a writer/reader pair already connected to a peer running
// Serve.
func NewClient(w io.Writer, r io.Reader) *Client {
	return &Client{w: w, r: r}
}

// ReadStats reads STAT packets until the terminating empty STAT, returning
// one wire.Packet per listed entry in the order the peer sent them
// (depth-first, alphabetical).
func (c *Client) ReadStats() ([]*wire.Packet, error) {
	var out []*wire.Packet
	for {
		pkt, err := c.readPacket()
		if err != nil {
			return nil, fmt.Errorf("diffcopy: read stat: %w", err)
		}
		if pkt.Type != wire.PacketStat {
			return nil, fmt.Errorf("diffcopy: expected STAT packet, got type %d", pkt.Type)
		}
		if pkt.Stat == nil {
			return out, nil
		}
		out = append(out, pkt)
	}
}

// RequestFile sends a REQ for id and collects DATA packets until the
// terminating empty DATA, returning the concatenated file content.
func (c *Client) RequestFile(id uint32) ([]byte, error) {
	if err := c.writePacket(&wire.Packet{Type: wire.PacketReq, ID: id}); err != nil {
		return nil, fmt.Errorf("diffcopy: send req: %w", err)
	}

	var data []byte
	for {
		pkt, err := c.readPacket()
		if err != nil {
			return nil, fmt.Errorf("diffcopy: read data: %w", err)
		}
		if pkt.Type != wire.PacketData || pkt.ID != id {
			return nil, fmt.Errorf("diffcopy: expected DATA packet for id %d, got type %d id %d", id, pkt.Type, pkt.ID)
		}
		if len(pkt.Data) == 0 {
			return data, nil
		}
		data = append(data, pkt.Data...)
	}
}

// Finish sends FIN and waits for the peer's own FIN acknowledgement.
func (c *Client) Finish() error {
	if err := c.writePacket(&wire.Packet{Type: wire.PacketFin}); err != nil {
		return fmt.Errorf("diffcopy: send fin: %w", err)
	}
	pkt, err := c.readPacket()
	if err != nil {
		return fmt.Errorf("diffcopy: read fin ack: %w", err)
	}
	if pkt.Type != wire.PacketFin {
		return fmt.Errorf("diffcopy: expected FIN ack, got type %d", pkt.Type)
	}
	return nil
}

func (c *Client) writePacket(pkt *wire.Packet) error {
	return writePacket(c.w, pkt)
}

func (c *Client) readPacket() (*wire.Packet, error) {
	chunk := make([]byte, 64*1024)
	for {
		pkt := &wire.Packet{}
		rest, err := wire.DecodeFrame(c.buf, pkt)
		if err != nil {
			return nil, err
		}
		if len(rest) != len(c.buf) {
			c.buf = rest
			return pkt, nil
		}
		n, readErr := c.r.Read(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
			continue
		}
		if readErr != nil {
			return nil, readErr
		}
	}
}
