package sii

// Limits caps the sizes a decoder will accept for length- and
// count-prefixed data. Every prefix is additionally bounds-checked
// against the remaining input, so these caps matter mostly for inputs
// that are large but still self-consistent.
type Limits struct {
	MaxStringLen    uint32
	MaxArrayLen     uint32
	MaxOrdinalTable uint32
	MaxFieldsPerDef int
	MaxDecodedBytes uint64 // unwrapped payload size cap
}

func defaultLimits() Limits {
	return Limits{
		MaxStringLen:    1 << 20,   // 1 MiB
		MaxArrayLen:     1 << 20,   // elements
		MaxOrdinalTable: 1 << 16,   // entries
		MaxFieldsPerDef: 1 << 10,   // fields
		MaxDecodedBytes: 256 << 20, // 256 MiB
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxStringLen == 0 {
		l.MaxStringLen = d.MaxStringLen
	}
	if l.MaxArrayLen == 0 {
		l.MaxArrayLen = d.MaxArrayLen
	}
	if l.MaxOrdinalTable == 0 {
		l.MaxOrdinalTable = d.MaxOrdinalTable
	}
	if l.MaxFieldsPerDef == 0 {
		l.MaxFieldsPerDef = d.MaxFieldsPerDef
	}
	if l.MaxDecodedBytes == 0 {
		l.MaxDecodedBytes = d.MaxDecodedBytes
	}
	return l
}
