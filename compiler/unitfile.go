package compiler

import (
	"io"

	"github.com/nikandfor/errors"
	"github.com/thiremani/tapec/syntax"
	"github.com/thiremani/tapec/tree"
	"github.com/tinylib/msgp/msgp"
)

// A unit file is one msgpack array:
//
//	[magic, version, name, tape, table]
//
// tape and table are embedded with their own MarshalMsg encodings, so any
// front end that produces them can hand a unit to the back ends.
const (
	unitMagic   = "tapec-unit"
	unitVersion = 1
	unitFields  = 5
)

var ErrUnitFile = Errors.NewType("unit_file")

// WriteUnit writes the tape and table of u. Diagnostics are not stored.
func WriteUnit(w io.Writer, u *Unit) error {
	if u.Tape == nil || u.Table == nil {
		return ErrUnitFile.New("unit %s has no tape", u.Name)
	}

	o := msgp.Require(nil, 64+len(u.Name)+u.Tape.Msgsize()+u.Table.Msgsize())
	o = msgp.AppendArrayHeader(o, unitFields)
	o = msgp.AppendString(o, unitMagic)
	o = msgp.AppendInt(o, unitVersion)
	o = msgp.AppendString(o, u.Name)

	o, err := u.Tape.MarshalMsg(o)
	if err != nil {
		return errors.Wrap(err, "marshal tape")
	}
	o, err = u.Table.MarshalMsg(o)
	if err != nil {
		return errors.Wrap(err, "marshal table")
	}

	if _, err := w.Write(o); err != nil {
		return errors.Wrap(err, "write unit")
	}
	return nil
}

// ReadUnit reads a unit written by WriteUnit and checks its tape.
func ReadUnit(r io.Reader) (*Unit, error) {
	bts, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read unit")
	}

	n, bts, err := msgp.ReadArrayHeaderBytes(bts)
	if err != nil {
		return nil, errors.Wrap(err, "unit header")
	}
	if n != unitFields {
		return nil, ErrUnitFile.New("unit has %d fields, want %d", n, unitFields)
	}

	magic, bts, err := msgp.ReadStringBytes(bts)
	if err != nil {
		return nil, errors.Wrap(err, "unit magic")
	}
	if magic != unitMagic {
		return nil, ErrUnitFile.New("not a unit file: magic %q", magic)
	}
	version, bts, err := msgp.ReadIntBytes(bts)
	if err != nil {
		return nil, errors.Wrap(err, "unit version")
	}
	if version != unitVersion {
		return nil, ErrUnitFile.New("unit version %d, want %d", version, unitVersion)
	}

	u := &Unit{Tape: tree.New(), Table: syntax.NewTable()}
	u.Name, bts, err = msgp.ReadStringBytes(bts)
	if err != nil {
		return nil, errors.Wrap(err, "unit name")
	}
	bts, err = u.Tape.UnmarshalMsg(bts)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal tape")
	}
	bts, err = u.Table.UnmarshalMsg(bts)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal table")
	}
	if len(bts) != 0 {
		return nil, ErrUnitFile.New("%d trailing bytes", len(bts))
	}

	if err := tree.Verify(u.Tape); err != nil {
		return nil, errors.Wrap(err, "unit %s", u.Name)
	}
	return u, nil
}
