package wire

import "google.golang.org/protobuf/encoding/protowire"

// Stat mirrors fsutil's wire Stat message: one entry in a DiffCopy listing.
// Field numbers: path=1 mode=2 uid=3 gid=4 size=5 modTime=6 linkname=7
// devmajor=8 devminor=9 xattrs=10.
type Stat struct {
	Path     string
	Mode     uint32
	UID      uint32
	GID      uint32
	Size     int64
	ModTime  int64
	Linkname string
	Devmajor uint64
	Devminor uint64
	Xattrs   map[string][]byte
}

func (s *Stat) Marshal() ([]byte, error) {
	var b []byte
	var err error
	b, err = appendString(b, 1, s.Path)
	if err != nil {
		return nil, err
	}
	b = appendVarint(b, 2, uint64(s.Mode))
	b = appendVarint(b, 3, uint64(s.UID))
	b = appendVarint(b, 4, uint64(s.GID))
	b = appendVarint(b, 5, uint64(s.Size))
	b = appendVarint(b, 6, uint64(s.ModTime))
	b, err = appendString(b, 7, s.Linkname)
	if err != nil {
		return nil, err
	}
	b = appendVarint(b, 8, s.Devmajor)
	b = appendVarint(b, 9, s.Devminor)
	for _, k := range sortedBytesKeys(s.Xattrs) {
		entry := appendBytes(appendMustString(1, k), 2, s.Xattrs[k])
		b = appendMessage(b, 10, entry)
	}
	return b, nil
}

func appendMustString(num protowire.Number, s string) []byte {
	b, _ := appendString(nil, num, s)
	return b
}

func sortedBytesKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

func (s *Stat) Unmarshal(b []byte) error {
	*s = Stat{}
	return consumeFields("Stat", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.Path = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.Mode = uint32(v)
			return n, nil
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.UID = uint32(v)
			return n, nil
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.GID = uint32(v)
			return n, nil
		case 5:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.Size = int64(v)
			return n, nil
		case 6:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.ModTime = int64(v)
			return n, nil
		case 7:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.Linkname = v
			return n, nil
		case 8:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.Devmajor = v
			return n, nil
		case 9:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s.Devminor = v
			return n, nil
		case 10:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			k, v, err := consumeXattrEntry(entry)
			if err != nil {
				return n, err
			}
			if s.Xattrs == nil {
				s.Xattrs = map[string][]byte{}
			}
			s.Xattrs[k] = v
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

func consumeXattrEntry(b []byte) (string, []byte, error) {
	var key string
	var value []byte
	err := consumeFields("xattr entry", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			key = s
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			value = append([]byte(nil), v...)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	return key, value, err
}

// PacketType distinguishes the four DiffCopy packet kinds.
type PacketType int32

const (
	PacketStat PacketType = 0
	PacketReq  PacketType = 1
	PacketData PacketType = 2
	PacketFin  PacketType = 3
)

// Packet mirrors fsutil's wire Packet message. Field numbers: type=1 id=2
// stat=3 data=4.
type Packet struct {
	Type PacketType
	ID   uint32
	Stat *Stat
	Data []byte
}

func (p *Packet) Marshal() ([]byte, error) {
	var b []byte
	b = appendVarint(b, 1, uint64(p.Type))
	b = appendVarint(b, 2, uint64(p.ID))
	if p.Stat != nil {
		payload, err := p.Stat.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 3, payload)
	}
	b = appendBytes(b, 4, p.Data)
	return b, nil
}

func (p *Packet) Unmarshal(b []byte) error {
	*p = Packet{}
	return consumeFields("Packet", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			p.Type = PacketType(v)
			return n, nil
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			p.ID = uint32(v)
			return n, nil
		case 3:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			st := &Stat{}
			if err := st.Unmarshal(payload); err != nil {
				return n, err
			}
			p.Stat = st
			return n, nil
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			p.Data = append([]byte(nil), v...)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}
