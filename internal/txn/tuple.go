package txn

import "google.golang.org/protobuf/encoding/protowire"

// Tuple is a row: an ordered list of column values, each an opaque byte
// string (the catalog's schema, not this core, interprets them). Tuples are
// framed using the protobuf wire format's length-delimited encoding via
// protowire directly — SPEC_FULL.md's domain-stack choice for the table
// heap's on-disk row format, in place of a hand-rolled byte-packing scheme.
type Tuple struct {
	Values [][]byte
}

// EncodeTuple serializes a Tuple as a sequence of field-1 length-delimited
// wire records, one per column — the same framing protoc-generated code
// emits for a `repeated bytes values = 1`, produced here directly through
// protowire since no .proto is compiled in this module.
func EncodeTuple(t Tuple) []byte {
	var b []byte
	for _, v := range t.Values {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, v)
	}
	return b
}

// DecodeTuple parses bytes produced by EncodeTuple.
func DecodeTuple(data []byte) (Tuple, error) {
	var t Tuple
	for len(data) > 0 {
		_, _, tagLen := protowire.ConsumeTag(data)
		if tagLen < 0 {
			return Tuple{}, protowire.ParseError(tagLen)
		}
		data = data[tagLen:]
		v, valLen := protowire.ConsumeBytes(data)
		if valLen < 0 {
			return Tuple{}, protowire.ParseError(valLen)
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		t.Values = append(t.Values, cp)
		data = data[valLen:]
	}
	return t, nil
}
