package tree

import (
	"github.com/tinylib/msgp/msgp"
)

// MarshalMsg implements msgp.Marshaler. The tape is written as an array of words.
func (t *Tape) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, t.Msgsize())
	o = msgp.AppendArrayHeader(o, uint32(t.n))
	for _, w := range t.words[:t.n] {
		o = msgp.AppendInt64(o, w)
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (t *Tape) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var n uint32
	n, bts, err = msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return
	}
	size := initialCap
	for size < int(n) {
		size *= 2
	}
	t.words = make([]int64, size)
	t.n = int(n)
	for i := range t.words[:t.n] {
		t.words[i], bts, err = msgp.ReadInt64Bytes(bts)
		if err != nil {
			return
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (t *Tape) Msgsize() (s int) {
	return msgp.ArrayHeaderSize + t.n*msgp.Int64Size
}
