package sii

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Encode serializes doc as a version-3 BSII stream: definitions in
// declaration order, then instances in document order, then the end
// marker. Decode(Encode(doc)) reproduces doc field for field.
func Encode(doc *Document) ([]byte, error) {
	w := &writer{}
	w.u32(binarySignature)
	w.u32(3)

	for _, def := range doc.DefinitionsInOrder() {
		if def == nil {
			return nil, fmt.Errorf("%w: declaration order references unknown definition", ErrUndefinedStructureReference)
		}
		w.u32(0)
		w.u8(1)
		w.u32(def.ID)
		w.string(def.Name)
		for _, fd := range def.Fields {
			w.u32(fd.Type)
			w.string(fd.Name)
			if fd.Type == typeOrdinalString {
				w.ordinalTable(fd.Ordinals)
			}
		}
		w.u32(0)
	}

	for _, inst := range doc.Instances {
		def, ok := doc.Definitions[inst.DefID]
		if !ok {
			return nil, fmt.Errorf("%w: %08X", ErrUndefinedStructureReference, inst.DefID)
		}
		w.u32(inst.DefID)
		w.id(inst.ID)
		for _, fd := range def.Fields {
			v, ok := inst.Fields[fd.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %q in instance of %q", ErrMissingField, fd.Name, def.Name)
			}
			if err := w.value(fd, v); err != nil {
				return nil, fmt.Errorf("field %q of %q: %w", fd.Name, def.Name, err)
			}
		}
	}

	w.u32(0)
	w.u8(0)
	return w.buf.Bytes(), nil
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) string(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}

// ordinalTable writes entries in ascending ordinal order so identical
// documents always serialize to identical bytes.
func (w *writer) ordinalTable(t map[uint32]string) {
	keys := make([]uint32, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	w.u32(uint32(len(keys)))
	for _, k := range keys {
		w.u32(k)
		w.string(t[k])
	}
}

func (w *writer) id(id ID) {
	if id.nameless {
		w.u8(0xFF)
		var raw uint64
		if len(id.parts) > 0 {
			raw = id.parts[0]
		}
		w.u64(raw)
		return
	}
	w.u8(uint8(len(id.parts)))
	for _, p := range id.parts {
		w.u64(p)
	}
}

func (w *writer) value(fd FieldDef, v Value) error {
	switch fd.Type {
	case typeString:
		s, ok := v.(string)
		if !ok {
			return typeError(v)
		}
		w.string(s)
	case typeStringArray:
		a, ok := v.([]string)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, s := range a {
			w.string(s)
		}
	case typeToken:
		t, ok := v.(Token)
		if !ok {
			return typeError(v)
		}
		w.u64(uint64(t))
	case typeTokenArray:
		a, ok := v.([]Token)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, t := range a {
			w.u64(uint64(t))
		}
	case typeFloat:
		f, ok := v.(float32)
		if !ok {
			return typeError(v)
		}
		w.f32(f)
	case typeFloatArray:
		a, ok := v.([]float32)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, f := range a {
			w.f32(f)
		}
	case typeVec2:
		x, ok := v.(Vec2)
		if !ok {
			return typeError(v)
		}
		w.floats(x[:])
	case typeVec3:
		x, ok := v.(Vec3)
		if !ok {
			return typeError(v)
		}
		w.floats(x[:])
	case typeVec3Array:
		a, ok := v.([]Vec3)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for i := range a {
			w.floats(a[i][:])
		}
	case typeVec3i:
		x, ok := v.(Vec3i)
		if !ok {
			return typeError(v)
		}
		for _, n := range x {
			w.u32(uint32(n))
		}
	case typeVec3iArray:
		a, ok := v.([]Vec3i)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for i := range a {
			for _, n := range a[i] {
				w.u32(uint32(n))
			}
		}
	case typeVec4:
		x, ok := v.(Vec4)
		if !ok {
			return typeError(v)
		}
		w.floats(x[:])
	case typeVec4Array:
		a, ok := v.([]Vec4)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for i := range a {
			w.floats(a[i][:])
		}
	case typePlacement:
		x, ok := v.(Placement)
		if !ok {
			return typeError(v)
		}
		w.floats(x[:])
	case typePlacementArray:
		a, ok := v.([]Placement)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for i := range a {
			w.floats(a[i][:])
		}
	case typeInt32:
		n, ok := v.(int32)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(n))
	case typeInt32Array:
		a, ok := v.([]int32)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, n := range a {
			w.u32(uint32(n))
		}
	case typeUint32, typeUint32Alias:
		n, ok := v.(uint32)
		if !ok {
			return typeError(v)
		}
		w.u32(n)
	case typeUint32Array:
		a, ok := v.([]uint32)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, n := range a {
			w.u32(n)
		}
	case typeUint16:
		n, ok := v.(uint16)
		if !ok {
			return typeError(v)
		}
		w.u16(n)
	case typeUint16Array:
		a, ok := v.([]uint16)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, n := range a {
			w.u16(n)
		}
	case typeInt64:
		n, ok := v.(int64)
		if !ok {
			return typeError(v)
		}
		w.u64(uint64(n))
	case typeInt64Array:
		a, ok := v.([]int64)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, n := range a {
			w.u64(uint64(n))
		}
	case typeUint64:
		n, ok := v.(uint64)
		if !ok {
			return typeError(v)
		}
		w.u64(n)
	case typeUint64Array:
		a, ok := v.([]uint64)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, n := range a {
			w.u64(n)
		}
	case typeBool:
		b, ok := v.(bool)
		if !ok {
			return typeError(v)
		}
		if b {
			w.u8(1)
		} else {
			w.u8(0)
		}
	case typeBoolArray:
		a, ok := v.([]bool)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, b := range a {
			if b {
				w.u8(1)
			} else {
				w.u8(0)
			}
		}
	case typeOrdinalString:
		s, ok := v.(string)
		if !ok {
			return typeError(v)
		}
		for ord, str := range fd.Ordinals {
			if str == s {
				w.u32(ord)
				return nil
			}
		}
		return fmt.Errorf("%w: %q not in ordinal table", ErrFieldType, s)
	case typeID, typeLink, typeLinkAlias:
		id, ok := v.(ID)
		if !ok {
			return typeError(v)
		}
		w.id(id)
	case typeIDArray, typeLinkArray:
		a, ok := v.([]ID)
		if !ok {
			return typeError(v)
		}
		w.u32(uint32(len(a)))
		for _, id := range a {
			w.id(id)
		}
	default:
		return fmt.Errorf("%w: %02X", ErrUnknownFieldType, fd.Type)
	}
	return nil
}

func (w *writer) floats(src []float32) {
	for _, f := range src {
		w.f32(f)
	}
}

func typeError(v Value) error {
	return fmt.Errorf("%w: cannot encode %T", ErrFieldType, v)
}
