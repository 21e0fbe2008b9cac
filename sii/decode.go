package sii

import (
	"fmt"
	"io"
)

const (
	binarySignature    uint32 = 0x49495342 // "BSII"
	textSignature      uint32 = 0x4E696953 // "SiiN"
	encryptedSignature uint32 = 0x43736353 // "ScsC"
)

// Field type codes of the binary form. Array variants carry a u32 element
// count; everything else has a width fixed by the code alone.
const (
	typeString         uint32 = 0x01
	typeStringArray    uint32 = 0x02
	typeToken          uint32 = 0x03
	typeTokenArray     uint32 = 0x04
	typeFloat          uint32 = 0x05
	typeFloatArray     uint32 = 0x06
	typeVec2           uint32 = 0x07
	typeVec3           uint32 = 0x09
	typeVec3Array      uint32 = 0x0A
	typeVec3i          uint32 = 0x11
	typeVec3iArray     uint32 = 0x12
	typeVec4           uint32 = 0x17
	typeVec4Array      uint32 = 0x18
	typePlacement      uint32 = 0x19
	typePlacementArray uint32 = 0x1A
	typeInt32          uint32 = 0x25
	typeInt32Array     uint32 = 0x26
	typeUint32         uint32 = 0x27
	typeUint32Array    uint32 = 0x28
	typeUint16         uint32 = 0x2B
	typeUint16Array    uint32 = 0x2C
	typeUint32Alias    uint32 = 0x2F
	typeInt64          uint32 = 0x31
	typeInt64Array     uint32 = 0x32
	typeUint64         uint32 = 0x33
	typeUint64Array    uint32 = 0x34
	typeBool           uint32 = 0x35
	typeBoolArray      uint32 = 0x36
	typeOrdinalString  uint32 = 0x37
	typeID             uint32 = 0x39
	typeIDArray        uint32 = 0x3A
	typeLink           uint32 = 0x3B
	typeLinkArray      uint32 = 0x3C
	typeLinkAlias      uint32 = 0x3D
)

// skipWidths lists type codes the decoder does not materialize but whose
// wire shape is documented, so instances using them can be scanned past in
// lenient mode. Elem > 0 means a u32 count followed by count*Elem bytes.
var skipWidths = map[uint32]struct{ Fixed, Elem int }{
	0x08: {Elem: 8},  // vec2 array
	0x29: {Fixed: 2}, // int16
	0x2A: {Elem: 2},  // int16 array
}

// FieldDef is one declared field of a structure definition. Ordinals is
// populated only for ordinal-string fields (code 0x37), whose values are
// u32 keys into this inline table.
type FieldDef struct {
	Name     string
	Type     uint32
	Ordinals map[uint32]string
}

// Definition declares a structure: a numeric identifier unique within the
// document, a unit name, and an ordered field list.
type Definition struct {
	ID     uint32
	Name   string
	Fields []FieldDef

	// opaque is set in lenient mode when the definition uses type codes
	// the decoder only knows how to skip.
	opaque bool
}

// Instance is one decoded unit: the definition it references, its unit ID,
// and one value per declared field.
type Instance struct {
	DefID  uint32
	Name   string // definition (unit class) name
	ID     ID
	Fields map[string]Value
}

// Block is a decoded stream element: either a *Definition or an *Instance.
type Block interface{ siiBlock() }

func (*Definition) siiBlock() {}
func (*Instance) siiBlock()   {}

// SkipRecord describes an instance dropped in lenient mode.
type SkipRecord struct {
	DefID  uint32
	Name   string
	Offset int
	Err    error
}

// Document is a fully decoded binary SII file: instances in encounter
// order plus the definitions they reference. It is immutable after Decode.
type Document struct {
	Definitions map[uint32]*Definition
	Instances   []*Instance
	Skipped     []SkipRecord

	defOrder []uint32
}

// DefinitionsInOrder returns definitions in declaration order.
func (d *Document) DefinitionsInOrder() []*Definition {
	out := make([]*Definition, 0, len(d.defOrder))
	for _, id := range d.defOrder {
		out = append(out, d.Definitions[id])
	}
	return out
}

// Parser streams blocks out of a BSII buffer. Definitions are retained as
// they are declared so later instances can be decoded against them.
type Parser struct {
	r        reader
	cfg      decodeConfig
	defs     map[uint32]*Definition
	defOrder []uint32
	skipped  []SkipRecord
	version  uint32
	done     bool
}

// NewParser validates the BSII signature and version and prepares a block
// stream over data. Only the plain binary form is accepted here; run
// encrypted or textual containers through Unwrap / TextParser first.
func NewParser(data []byte, opts ...DecodeOption) (*Parser, error) {
	cfg := decodeConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()

	p := &Parser{
		r:    reader{buf: data, limits: cfg.limits},
		cfg:  cfg,
		defs: make(map[uint32]*Definition),
	}
	sig, err := p.r.u32()
	if err != nil {
		return nil, err
	}
	if sig != binarySignature {
		return nil, fmt.Errorf("%w: %08X", ErrUnrecognizedContainer, sig)
	}
	version, err := p.r.u32()
	if err != nil {
		return nil, err
	}
	if version != 2 && version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	p.version = version
	return p, nil
}

// Next returns the next definition or instance, or io.EOF at the stream's
// end marker. Instances skipped in lenient mode are not returned; they are
// recorded and surfaced via Decode.
func (p *Parser) Next() (Block, error) {
	for {
		if p.done {
			return nil, io.EOF
		}
		blockType, err := p.r.u32()
		if err != nil {
			return nil, err
		}
		if blockType == 0 {
			def, err := p.readDefinition()
			if err != nil {
				return nil, err
			}
			if def == nil {
				p.done = true
				return nil, io.EOF
			}
			return def, nil
		}
		inst, skipped, err := p.readInstance(blockType)
		if err != nil {
			return nil, err
		}
		if skipped {
			continue
		}
		return inst, nil
	}
}

// readDefinition decodes one definition block. A zero validity byte is the
// stream end marker and yields nil.
func (p *Parser) readDefinition() (*Definition, error) {
	valid, err := p.r.u8()
	if err != nil {
		return nil, err
	}
	if valid == 0 {
		return nil, nil
	}
	id, err := p.r.u32()
	if err != nil {
		return nil, err
	}
	if _, dup := p.defs[id]; dup {
		return nil, fmt.Errorf("%w: %08X", ErrDuplicateDefinition, id)
	}
	name, err := p.r.string()
	if err != nil {
		return nil, err
	}

	def := &Definition{ID: id, Name: name}
	for {
		typeCode, err := p.r.u32()
		if err != nil {
			return nil, err
		}
		if typeCode == 0 {
			break
		}
		if len(def.Fields) >= p.cfg.limits.MaxFieldsPerDef {
			return nil, fmt.Errorf("%w: definition %q has too many fields", ErrLimitExceeded, name)
		}
		fieldName, err := p.r.string()
		if err != nil {
			return nil, err
		}
		fd := FieldDef{Name: fieldName, Type: typeCode}
		if typeCode == typeOrdinalString {
			fd.Ordinals, err = p.readOrdinalTable()
			if err != nil {
				return nil, err
			}
		}
		if !decodable(typeCode) {
			_, skippable := skipWidths[typeCode]
			if !skippable || !p.cfg.lenient {
				return nil, fmt.Errorf("%w: %02X in definition %q field %q", ErrUnknownFieldType, typeCode, name, fieldName)
			}
			def.opaque = true
		}
		def.Fields = append(def.Fields, fd)
	}

	p.defs[id] = def
	p.defOrder = append(p.defOrder, id)
	return def, nil
}

func (p *Parser) readOrdinalTable() (map[uint32]string, error) {
	n, err := p.r.u32()
	if err != nil {
		return nil, err
	}
	if n > p.cfg.limits.MaxOrdinalTable {
		return nil, fmt.Errorf("%w: ordinal table with %d entries", ErrLimitExceeded, n)
	}
	// Each entry is at least the u32 ordinal plus a u32 string length.
	if int64(n)*8 > int64(p.r.remaining()) {
		return nil, fmt.Errorf("%w: ordinal table overruns input", ErrUnexpectedEndOfInput)
	}
	out := make(map[uint32]string, n)
	for i := uint32(0); i < n; i++ {
		ord, err := p.r.u32()
		if err != nil {
			return nil, err
		}
		s, err := p.r.string()
		if err != nil {
			return nil, err
		}
		out[ord] = s
	}
	return out, nil
}

// readInstance decodes one instance block, or scans past it when its
// definition is opaque. The boolean result reports a lenient-mode skip.
func (p *Parser) readInstance(defID uint32) (*Instance, bool, error) {
	def, ok := p.defs[defID]
	if !ok {
		return nil, false, fmt.Errorf("%w: %08X", ErrUndefinedStructureReference, defID)
	}
	start := p.r.off

	unitID, err := p.readID()
	if err != nil {
		return nil, false, err
	}
	if def.opaque {
		for _, fd := range def.Fields {
			if err := p.skipValue(fd.Type); err != nil {
				return nil, false, err
			}
		}
		p.skipped = append(p.skipped, SkipRecord{
			DefID:  defID,
			Name:   def.Name,
			Offset: start,
			Err:    fmt.Errorf("%w: definition %q", ErrUnknownFieldType, def.Name),
		})
		return nil, true, nil
	}

	fields := make(map[string]Value, len(def.Fields))
	for _, fd := range def.Fields {
		v, err := p.readValue(fd)
		if err != nil {
			return nil, false, fmt.Errorf("field %q of %q: %w", fd.Name, def.Name, err)
		}
		fields[fd.Name] = v
	}
	return &Instance{DefID: defID, Name: def.Name, ID: unitID, Fields: fields}, false, nil
}

func decodable(typeCode uint32) bool {
	switch typeCode {
	case typeString, typeStringArray, typeToken, typeTokenArray,
		typeFloat, typeFloatArray, typeVec2, typeVec3, typeVec3Array,
		typeVec3i, typeVec3iArray, typeVec4, typeVec4Array,
		typePlacement, typePlacementArray, typeInt32, typeInt32Array,
		typeUint32, typeUint32Array, typeUint16, typeUint16Array,
		typeUint32Alias, typeInt64, typeInt64Array, typeUint64,
		typeUint64Array, typeBool, typeBoolArray, typeOrdinalString,
		typeID, typeIDArray, typeLink, typeLinkArray, typeLinkAlias:
		return true
	}
	return false
}

func (p *Parser) readValue(fd FieldDef) (Value, error) {
	r := &p.r
	switch fd.Type {
	case typeString:
		return r.string()
	case typeStringArray:
		n, err := r.arrayLen(4)
		if err != nil {
			return nil, err
		}
		out := make([]string, n)
		for i := range out {
			if out[i], err = r.string(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeToken:
		v, err := r.u64()
		return Token(v), err
	case typeTokenArray:
		n, err := r.arrayLen(8)
		if err != nil {
			return nil, err
		}
		out := make([]Token, n)
		for i := range out {
			v, err := r.u64()
			if err != nil {
				return nil, err
			}
			out[i] = Token(v)
		}
		return out, nil
	case typeFloat:
		return r.f32()
	case typeFloatArray:
		n, err := r.arrayLen(4)
		if err != nil {
			return nil, err
		}
		out := make([]float32, n)
		for i := range out {
			if out[i], err = r.f32(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeVec2:
		var v Vec2
		err := p.readFloats(v[:])
		return v, err
	case typeVec3:
		var v Vec3
		err := p.readFloats(v[:])
		return v, err
	case typeVec3Array:
		n, err := r.arrayLen(12)
		if err != nil {
			return nil, err
		}
		out := make([]Vec3, n)
		for i := range out {
			if err := p.readFloats(out[i][:]); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeVec3i:
		var v Vec3i
		for i := range v {
			var err error
			if v[i], err = r.i32(); err != nil {
				return nil, err
			}
		}
		return v, nil
	case typeVec3iArray:
		n, err := r.arrayLen(12)
		if err != nil {
			return nil, err
		}
		out := make([]Vec3i, n)
		for i := range out {
			for j := range out[i] {
				if out[i][j], err = r.i32(); err != nil {
					return nil, err
				}
			}
		}
		return out, nil
	case typeVec4:
		var v Vec4
		err := p.readFloats(v[:])
		return v, err
	case typeVec4Array:
		n, err := r.arrayLen(16)
		if err != nil {
			return nil, err
		}
		out := make([]Vec4, n)
		for i := range out {
			if err := p.readFloats(out[i][:]); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typePlacement:
		var v Placement
		err := p.readFloats(v[:])
		return v, err
	case typePlacementArray:
		n, err := r.arrayLen(32)
		if err != nil {
			return nil, err
		}
		out := make([]Placement, n)
		for i := range out {
			if err := p.readFloats(out[i][:]); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeInt32:
		return r.i32()
	case typeInt32Array:
		n, err := r.arrayLen(4)
		if err != nil {
			return nil, err
		}
		out := make([]int32, n)
		for i := range out {
			if out[i], err = r.i32(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeUint32, typeUint32Alias:
		return r.u32()
	case typeUint32Array:
		n, err := r.arrayLen(4)
		if err != nil {
			return nil, err
		}
		out := make([]uint32, n)
		for i := range out {
			if out[i], err = r.u32(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeUint16:
		return r.u16()
	case typeUint16Array:
		n, err := r.arrayLen(2)
		if err != nil {
			return nil, err
		}
		out := make([]uint16, n)
		for i := range out {
			if out[i], err = r.u16(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeInt64:
		return r.i64()
	case typeInt64Array:
		n, err := r.arrayLen(8)
		if err != nil {
			return nil, err
		}
		out := make([]int64, n)
		for i := range out {
			if out[i], err = r.i64(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeUint64:
		return r.u64()
	case typeUint64Array:
		n, err := r.arrayLen(8)
		if err != nil {
			return nil, err
		}
		out := make([]uint64, n)
		for i := range out {
			if out[i], err = r.u64(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case typeBool:
		v, err := r.u8()
		return v != 0, err
	case typeBoolArray:
		n, err := r.arrayLen(1)
		if err != nil {
			return nil, err
		}
		out := make([]bool, n)
		for i := range out {
			v, err := r.u8()
			if err != nil {
				return nil, err
			}
			out[i] = v != 0
		}
		return out, nil
	case typeOrdinalString:
		ord, err := r.u32()
		if err != nil {
			return nil, err
		}
		s, ok := fd.Ordinals[ord]
		if !ok {
			return nil, fmt.Errorf("%w: ordinal %d", ErrMissingOrdinal, ord)
		}
		return s, nil
	case typeID, typeLink, typeLinkAlias:
		return p.readID()
	case typeIDArray, typeLinkArray:
		n, err := r.arrayLen(1)
		if err != nil {
			return nil, err
		}
		out := make([]ID, n)
		for i := range out {
			if out[i], err = p.readID(); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %02X", ErrUnknownFieldType, fd.Type)
}

func (p *Parser) readFloats(dst []float32) error {
	for i := range dst {
		var err error
		if dst[i], err = p.r.f32(); err != nil {
			return err
		}
	}
	return nil
}

// readID decodes the wire form of an ID: a u8 part count, 0xFF marking a
// nameless ID carried as one raw word.
func (p *Parser) readID() (ID, error) {
	n, err := p.r.u8()
	if err != nil {
		return ID{}, err
	}
	if n == 0xFF {
		v, err := p.r.u64()
		if err != nil {
			return ID{}, err
		}
		return NamelessID(v), nil
	}
	if err := p.r.need(int(n) * 8); err != nil {
		return ID{}, err
	}
	parts := make([]uint64, n)
	for i := range parts {
		if parts[i], err = p.r.u64(); err != nil {
			return ID{}, err
		}
	}
	return ID{parts: parts}, nil
}

// skipValue scans past one value without materializing it. Decodable types
// reuse the regular readers; skip-only types use their documented widths.
func (p *Parser) skipValue(typeCode uint32) error {
	if typeCode == typeOrdinalString {
		// The stored ordinal is a bare u32; no table needed to skip it.
		_, err := p.r.u32()
		return err
	}
	if decodable(typeCode) {
		_, err := p.readValue(FieldDef{Type: typeCode})
		return err
	}
	w, ok := skipWidths[typeCode]
	if !ok {
		return fmt.Errorf("%w: %02X has indeterminate width", ErrUnknownFieldType, typeCode)
	}
	if w.Elem > 0 {
		n, err := p.r.arrayLen(w.Elem)
		if err != nil {
			return err
		}
		return p.r.skip(n * w.Elem)
	}
	return p.r.skip(w.Fixed)
}

// Decode parses a complete BSII buffer into a Document. Instance order in
// the input is preserved; in lenient mode, instances that had to be
// skipped are listed on Document.Skipped.
func Decode(data []byte, opts ...DecodeOption) (*Document, error) {
	p, err := NewParser(data, opts...)
	if err != nil {
		return nil, err
	}
	doc := &Document{Definitions: make(map[uint32]*Definition)}
	for {
		blk, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch b := blk.(type) {
		case *Definition:
			doc.Definitions[b.ID] = b
			doc.defOrder = append(doc.defOrder, b.ID)
		case *Instance:
			doc.Instances = append(doc.Instances, b)
		}
	}
	doc.Skipped = p.skipped
	return doc, nil
}
