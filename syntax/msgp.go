package syntax

import (
	"github.com/tinylib/msgp/msgp"
)

// The table is encoded positionally: every record is a msgpack array whose
// element order is fixed here. Readers reject records of the wrong length.

const (
	identFields = 5
	funcFields  = 6
	tableFields = 4
)

// MarshalMsg implements msgp.Marshaler
func (t *Table) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.AppendArrayHeader(b, tableFields)

	o = msgp.AppendArrayHeader(o, uint32(len(t.Idents)))
	for _, id := range t.Idents {
		o = msgp.AppendArrayHeader(o, identFields)
		o = msgp.AppendString(o, id.Name)
		o = msgp.AppendInt(o, int(id.Class))
		o = msgp.AppendInt(o, id.Dims)
		o = msgp.AppendInt(o, int(id.Storage))
		o = msgp.AppendInt(o, id.Displ)
	}

	o = msgp.AppendArrayHeader(o, uint32(len(t.Funcs)))
	for _, f := range t.Funcs {
		o = msgp.AppendArrayHeader(o, funcFields)
		o = msgp.AppendString(o, f.Name)
		o = msgp.AppendInt(o, int(f.Return))
		o = msgp.AppendArrayHeader(o, uint32(len(f.Params)))
		for _, p := range f.Params {
			o = msgp.AppendInt(o, int(p))
		}
		o = msgp.AppendArrayHeader(o, uint32(len(f.ParamIdents)))
		for _, p := range f.ParamIdents {
			o = msgp.AppendInt(o, p)
		}
		o = msgp.AppendInt(o, f.Frame)
		o = msgp.AppendBool(o, f.Defined)
	}

	o = msgp.AppendArrayHeader(o, uint32(len(t.Strings)))
	for _, s := range t.Strings {
		o = msgp.AppendString(o, s)
	}

	o = msgp.AppendInt(o, t.GlobalSize)
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (t *Table) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if n != tableFields {
		err = msgp.ArrayError{Wanted: tableFields, Got: n}
		return
	}

	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	t.Idents = make([]Identifier, n)
	for i := range t.Idents {
		bts, err = t.Idents[i].unmarshal(bts)
		if err != nil {
			return
		}
	}

	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	t.Funcs = make([]Function, n)
	for i := range t.Funcs {
		bts, err = t.Funcs[i].unmarshal(bts)
		if err != nil {
			return
		}
	}

	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	t.Strings = make([]string, n)
	for i := range t.Strings {
		t.Strings[i], bts, err = msgp.ReadStringBytes(bts)
		if err != nil {
			return
		}
	}

	t.GlobalSize, bts, err = msgp.ReadIntBytes(bts)
	if err != nil {
		return
	}
	t.funcIndex = nil
	t.strIndex = nil
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (t *Table) Msgsize() (s int) {
	s = 4*msgp.ArrayHeaderSize + msgp.IntSize
	for _, id := range t.Idents {
		s += msgp.ArrayHeaderSize + msgp.StringPrefixSize + len(id.Name) + 4*msgp.IntSize
	}
	for _, f := range t.Funcs {
		s += 3*msgp.ArrayHeaderSize + msgp.StringPrefixSize + len(f.Name) + 2*msgp.IntSize + msgp.BoolSize
		s += (len(f.Params) + len(f.ParamIdents)) * msgp.IntSize
	}
	for _, str := range t.Strings {
		s += msgp.StringPrefixSize + len(str)
	}
	return
}

func (id *Identifier) unmarshal(bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if n != identFields {
		err = msgp.ArrayError{Wanted: identFields, Got: n}
		return
	}
	var v int
	id.Name, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return
	}
	v, bts, err = msgp.ReadIntBytes(bts)
	if err != nil {
		return
	}
	id.Class = Class(v)
	id.Dims, bts, err = msgp.ReadIntBytes(bts)
	if err != nil {
		return
	}
	v, bts, err = msgp.ReadIntBytes(bts)
	if err != nil {
		return
	}
	id.Storage = Storage(v)
	id.Displ, bts, err = msgp.ReadIntBytes(bts)
	if err != nil {
		return
	}
	o = bts
	return
}

func (f *Function) unmarshal(bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	if n != funcFields {
		err = msgp.ArrayError{Wanted: funcFields, Got: n}
		return
	}
	var v int
	f.Name, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return
	}
	v, bts, err = msgp.ReadIntBytes(bts)
	if err != nil {
		return
	}
	f.Return = Class(v)

	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	f.Params = nil
	if n > 0 {
		f.Params = make([]Class, n)
	}
	for i := range f.Params {
		v, bts, err = msgp.ReadIntBytes(bts)
		if err != nil {
			return
		}
		f.Params[i] = Class(v)
	}

	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	f.ParamIdents = nil
	if n > 0 {
		f.ParamIdents = make([]int, n)
	}
	for i := range f.ParamIdents {
		f.ParamIdents[i], bts, err = msgp.ReadIntBytes(bts)
		if err != nil {
			return
		}
	}

	f.Frame, bts, err = msgp.ReadIntBytes(bts)
	if err != nil {
		return
	}
	f.Defined, bts, err = msgp.ReadBoolBytes(bts)
	if err != nil {
		return
	}
	o = bts
	return
}
