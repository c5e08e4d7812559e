package derive

import (
	"encoding/hex"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// Fingerprint identifies a wire format. Programs with equal fingerprints
// read and write identical bytes for identical values; names do not
// contribute.
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 8 bytes in hex.
func (f Fingerprint) Short() string {
	return hex.EncodeToString(f[:8])
}

const fingerprintContext = "wirecodec 2026 program fingerprint v1"

var shapeMode cbor.EncMode

func init() {
	var err error
	shapeMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("derive: CBOR encoder initialization failed: " + err.Error())
	}
}

type opShape struct {
	_     struct{} `cbor:",toarray"`
	Code  uint8
	Width uint8
	Prim  uint8
	Len   int
	Bytes []byte
	Expr  string
	Ref   string
	Key   []opShape
	Elem  []opShape
}

type fieldShape struct {
	_            struct{} `cbor:",toarray"`
	Decode       []opShape
	Encode       []opShape
	DefaultOnEOF bool
}

type caseShape struct {
	_      struct{} `cbor:",toarray"`
	Tag    uint64
	Fields []fieldShape
}

type enumShape struct {
	_     struct{} `cbor:",toarray"`
	Width uint8
	Peek  bool
	Cases []caseShape
}

func shapeOps(ops []Op) []opShape {
	if len(ops) == 0 {
		return nil
	}
	out := make([]opShape, len(ops))
	for i, op := range ops {
		s := opShape{
			Code:  uint8(op.Code),
			Width: uint8(op.Width),
			Prim:  uint8(op.Prim),
			Len:   op.Len,
			Bytes: op.Bytes,
			Key:   shapeOps(op.Key),
			Elem:  shapeOps(op.Elem),
		}
		if op.Expr != nil {
			s.Expr = op.Expr.Source
		}
		if op.Code == OpDelegate {
			s.Ref = op.Node.Ref.String()
		}
		out[i] = s
	}
	return out
}

func shapeFields(p *RecordProgram) []fieldShape {
	out := make([]fieldShape, len(p.Fields))
	for i, fp := range p.Fields {
		out[i] = fieldShape{
			Decode:       shapeOps(fp.Decode),
			Encode:       shapeOps(fp.Encode),
			DefaultOnEOF: fp.Field.DefaultOnEOF,
		}
	}
	return out
}

func hashShape(kind string, shape any) (Fingerprint, error) {
	data, err := shapeMode.Marshal(shape)
	if err != nil {
		return Fingerprint{}, err
	}
	h := blake3.NewDeriveKey(fingerprintContext)
	h.WriteString(kind)
	h.Write(data)
	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp, nil
}

// Fingerprint hashes the wire-relevant shape of the record program.
func (p *RecordProgram) Fingerprint() (Fingerprint, error) {
	return hashShape("record", shapeFields(p))
}

// Fingerprint hashes the wire-relevant shape of the enum program.
func (p *EnumProgram) Fingerprint() (Fingerprint, error) {
	shape := enumShape{
		Width: uint8(p.Enum.TagWidth),
		Peek:  p.Enum.Peek,
		Cases: make([]caseShape, len(p.Cases)),
	}
	for i, c := range p.Cases {
		shape.Cases[i] = caseShape{Tag: c.Variant.Tag, Fields: shapeFields(c.Program)}
	}
	return hashShape("enum", shape)
}
