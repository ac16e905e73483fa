package wire

import "google.golang.org/protobuf/encoding/protowire"

// BytesMessage wraps a single opaque payload. Used by the outer
// Control/Session stream and the DiffCopy stream, where the message itself
// carries no structure beyond "a chunk of bytes". Field numbers: data=1.
type BytesMessage struct {
	Data []byte
}

func (m *BytesMessage) Marshal() ([]byte, error) {
	return appendBytes(nil, 1, m.Data), nil
}

func (m *BytesMessage) Unmarshal(b []byte) error {
	*m = BytesMessage{}
	return consumeFields("BytesMessage", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Data = append([]byte(nil), v...)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// CacheOptionsEntry names one importable/exportable cache backend and its
// backend-specific attrs (e.g. type=registry, attrs={"ref": "..."}).
// Field numbers: type=1 attrs=2.
type CacheOptionsEntry struct {
	Type  string
	Attrs map[string]string
}

func (m *CacheOptionsEntry) Marshal() ([]byte, error) {
	b, err := appendString(nil, 1, m.Type)
	if err != nil {
		return nil, err
	}
	b, err = appendStringMap(b, 2, m.Attrs)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (m *CacheOptionsEntry) Unmarshal(b []byte) error {
	*m = CacheOptionsEntry{}
	return consumeFields("CacheOptionsEntry", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Type = v
			return n, nil
		case 2:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			k, v, err := consumeStringMapEntry(entry)
			if err != nil {
				return n, err
			}
			if m.Attrs == nil {
				m.Attrs = map[string]string{}
			}
			m.Attrs[k] = v
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// CacheOptions is the solve-time cache import/export configuration. Field
// numbers: export_refs=1 import_refs=2 entries=3.
type CacheOptions struct {
	ExportRefs []string
	ImportRefs []string
	Entries    []*CacheOptionsEntry
}

func (m *CacheOptions) Marshal() ([]byte, error) {
	var b []byte
	for _, r := range m.ExportRefs {
		var err error
		if b, err = appendRepeatedString(b, 1, r); err != nil {
			return nil, err
		}
	}
	for _, r := range m.ImportRefs {
		var err error
		if b, err = appendRepeatedString(b, 2, r); err != nil {
			return nil, err
		}
	}
	for _, e := range m.Entries {
		payload, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 3, payload)
	}
	return b, nil
}

func (m *CacheOptions) Unmarshal(b []byte) error {
	*m = CacheOptions{}
	return consumeFields("CacheOptions", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.ExportRefs = append(m.ExportRefs, v)
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.ImportRefs = append(m.ImportRefs, v)
			return n, nil
		case 3:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			e := &CacheOptionsEntry{}
			if err := e.Unmarshal(payload); err != nil {
				return n, err
			}
			m.Entries = append(m.Entries, e)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// Definition is the serialized LLB graph handed to the daemon: one
// marshaled op per vertex plus the associated source metadata, kept
// opaque here since the graph IR itself is out of scope.
// Field numbers: def=1 (repeated) metadata=2.
type Definition struct {
	Def      [][]byte
	Metadata []byte
}

func (m *Definition) Marshal() ([]byte, error) {
	var b []byte
	for _, d := range m.Def {
		b = appendBytes(b, 1, d)
		// Repeated bytes fields must be emitted even when empty to preserve
		// vertex count; appendBytes alone would drop a zero-length op.
		if len(d) == 0 {
			b = protowire.AppendTag(b, 1, protowire.BytesType)
			b = protowire.AppendBytes(b, nil)
		}
	}
	b = appendBytes(b, 2, m.Metadata)
	return b, nil
}

func (m *Definition) Unmarshal(b []byte) error {
	*m = Definition{}
	return consumeFields("Definition", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Def = append(m.Def, append([]byte(nil), v...))
			return n, nil
		case 2:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Metadata = append([]byte(nil), v...)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// SolveRequest is Control/Solve's request. Field numbers: ref=1
// definition=2 exporter=3 exporter_attrs=4 session=5 frontend=6
// frontend_attrs=7 cache=8 entitlements=9.
type SolveRequest struct {
	Ref           string
	Definition    *Definition
	Exporter      string
	ExporterAttrs map[string]string
	Session       string
	Frontend      string
	FrontendAttrs map[string]string
	Cache         *CacheOptions
	Entitlements  []string
}

func (m *SolveRequest) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if b, err = appendString(b, 1, m.Ref); err != nil {
		return nil, err
	}
	if m.Definition != nil {
		payload, err := m.Definition.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 2, payload)
	}
	if b, err = appendString(b, 3, m.Exporter); err != nil {
		return nil, err
	}
	if b, err = appendStringMap(b, 4, m.ExporterAttrs); err != nil {
		return nil, err
	}
	if b, err = appendString(b, 5, m.Session); err != nil {
		return nil, err
	}
	if b, err = appendString(b, 6, m.Frontend); err != nil {
		return nil, err
	}
	if b, err = appendStringMap(b, 7, m.FrontendAttrs); err != nil {
		return nil, err
	}
	if m.Cache != nil {
		payload, err := m.Cache.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 8, payload)
	}
	for _, e := range m.Entitlements {
		if b, err = appendRepeatedString(b, 9, e); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *SolveRequest) Unmarshal(b []byte) error {
	*m = SolveRequest{}
	return consumeFields("SolveRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Ref = v
			return n, nil
		case 2:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			d := &Definition{}
			if err := d.Unmarshal(payload); err != nil {
				return n, err
			}
			m.Definition = d
			return n, nil
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Exporter = v
			return n, nil
		case 4:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			k, v, err := consumeStringMapEntry(entry)
			if err != nil {
				return n, err
			}
			if m.ExporterAttrs == nil {
				m.ExporterAttrs = map[string]string{}
			}
			m.ExporterAttrs[k] = v
			return n, nil
		case 5:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Session = v
			return n, nil
		case 6:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Frontend = v
			return n, nil
		case 7:
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			k, v, err := consumeStringMapEntry(entry)
			if err != nil {
				return n, err
			}
			if m.FrontendAttrs == nil {
				m.FrontendAttrs = map[string]string{}
			}
			m.FrontendAttrs[k] = v
			return n, nil
		case 8:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			c := &CacheOptions{}
			if err := c.Unmarshal(payload); err != nil {
				return n, err
			}
			m.Cache = c
			return n, nil
		case 9:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Entitlements = append(m.Entitlements, v)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// SolveResponse is Control/Solve's response: the exporter's response
// metadata (e.g. the pushed image digest). Field numbers: exporter_response=1.
type SolveResponse struct {
	ExporterResponse map[string]string
}

func (m *SolveResponse) Marshal() ([]byte, error) {
	return appendStringMap(nil, 1, m.ExporterResponse)
}

func (m *SolveResponse) Unmarshal(b []byte) error {
	*m = SolveResponse{}
	return consumeFields("SolveResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			entry, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			k, v, err := consumeStringMapEntry(entry)
			if err != nil {
				return n, err
			}
			if m.ExporterResponse == nil {
				m.ExporterResponse = map[string]string{}
			}
			m.ExporterResponse[k] = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// StatusRequest is Control/Status's request: subscribe to progress events
// for one in-flight build ref. Field numbers: ref=1.
type StatusRequest struct {
	Ref string
}

func (m *StatusRequest) Marshal() ([]byte, error) {
	return appendString(nil, 1, m.Ref)
}

func (m *StatusRequest) Unmarshal(b []byte) error {
	*m = StatusRequest{}
	return consumeFields("StatusRequest", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Ref = v
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
}

// Vertex is one build-graph node's lifecycle snapshot. Field numbers:
// digest=1 inputs=2 name=3 started=4 completed=5 error=6 cached=7.
type Vertex struct {
	Digest    string
	Inputs    []string
	Name      string
	Started   int64
	Completed int64
	Error     string
	Cached    bool
}

func (m *Vertex) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if b, err = appendString(b, 1, m.Digest); err != nil {
		return nil, err
	}
	for _, in := range m.Inputs {
		if b, err = appendRepeatedString(b, 2, in); err != nil {
			return nil, err
		}
	}
	if b, err = appendString(b, 3, m.Name); err != nil {
		return nil, err
	}
	b = appendVarint(b, 4, uint64(m.Started))
	b = appendVarint(b, 5, uint64(m.Completed))
	if b, err = appendString(b, 6, m.Error); err != nil {
		return nil, err
	}
	b = appendBool(b, 7, m.Cached)
	return b, nil
}

func (m *Vertex) Unmarshal(b []byte) error {
	*m = Vertex{}
	return consumeFields("Vertex", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Digest = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Inputs = append(m.Inputs, v)
			return n, nil
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Name = v
			return n, nil
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Started = int64(v)
			return n, nil
		case 5:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Completed = int64(v)
			return n, nil
		case 6:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Error = v
			return n, nil
		case 7:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Cached = v != 0
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// VertexStatus is a progress tick for one sub-operation of a vertex (e.g.
// "downloading layer 3/7"). Field numbers: id=1 vertex=2 name=3 current=4
// total=5 timestamp=6 started=7 completed=8.
type VertexStatus struct {
	ID        string
	Vertex    string
	Name      string
	Current   int64
	Total     int64
	Timestamp int64
	Started   int64
	Completed int64
}

func (m *VertexStatus) Marshal() ([]byte, error) {
	var b []byte
	var err error
	if b, err = appendString(b, 1, m.ID); err != nil {
		return nil, err
	}
	if b, err = appendString(b, 2, m.Vertex); err != nil {
		return nil, err
	}
	if b, err = appendString(b, 3, m.Name); err != nil {
		return nil, err
	}
	b = appendVarint(b, 4, uint64(m.Current))
	b = appendVarint(b, 5, uint64(m.Total))
	b = appendVarint(b, 6, uint64(m.Timestamp))
	b = appendVarint(b, 7, uint64(m.Started))
	b = appendVarint(b, 8, uint64(m.Completed))
	return b, nil
}

func (m *VertexStatus) Unmarshal(b []byte) error {
	*m = VertexStatus{}
	return consumeFields("VertexStatus", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.ID = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Vertex = v
			return n, nil
		case 3:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Name = v
			return n, nil
		case 4:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Current = int64(v)
			return n, nil
		case 5:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Total = int64(v)
			return n, nil
		case 6:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Timestamp = int64(v)
			return n, nil
		case 7:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Started = int64(v)
			return n, nil
		case 8:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Completed = int64(v)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// VertexLog is one line (or partial line) of a vertex's captured
// stdout/stderr. Field numbers: vertex=1 timestamp=2 stream=3 msg=4.
type VertexLog struct {
	Vertex    string
	Timestamp int64
	Stream    int32
	Msg       []byte
}

func (m *VertexLog) Marshal() ([]byte, error) {
	b, err := appendString(nil, 1, m.Vertex)
	if err != nil {
		return nil, err
	}
	b = appendVarint(b, 2, uint64(m.Timestamp))
	b = appendVarint(b, 3, uint64(m.Stream))
	b = appendBytes(b, 4, m.Msg)
	return b, nil
}

func (m *VertexLog) Unmarshal(b []byte) error {
	*m = VertexLog{}
	return consumeFields("VertexLog", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Vertex = v
			return n, nil
		case 2:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Timestamp = int64(v)
			return n, nil
		case 3:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Stream = int32(v)
			return n, nil
		case 4:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			m.Msg = append([]byte(nil), v...)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}

// StatusResponse is one batch of progress events pushed by Control/Status.
// Field numbers: vertexes=1 statuses=2 logs=3.
type StatusResponse struct {
	Vertexes []*Vertex
	Statuses []*VertexStatus
	Logs     []*VertexLog
}

func (m *StatusResponse) Marshal() ([]byte, error) {
	var b []byte
	for _, v := range m.Vertexes {
		payload, err := v.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 1, payload)
	}
	for _, s := range m.Statuses {
		payload, err := s.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 2, payload)
	}
	for _, l := range m.Logs {
		payload, err := l.Marshal()
		if err != nil {
			return nil, err
		}
		b = appendMessage(b, 3, payload)
	}
	return b, nil
}

func (m *StatusResponse) Unmarshal(b []byte) error {
	*m = StatusResponse{}
	return consumeFields("StatusResponse", b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			v := &Vertex{}
			if err := v.Unmarshal(payload); err != nil {
				return n, err
			}
			m.Vertexes = append(m.Vertexes, v)
			return n, nil
		case 2:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			s := &VertexStatus{}
			if err := s.Unmarshal(payload); err != nil {
				return n, err
			}
			m.Statuses = append(m.Statuses, s)
			return n, nil
		case 3:
			payload, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, protowire.ParseError(n)
			}
			l := &VertexLog{}
			if err := l.Unmarshal(payload); err != nil {
				return n, err
			}
			m.Logs = append(m.Logs, l)
			return n, nil
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
}
