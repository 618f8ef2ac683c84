package bytecode

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/glycerine/blake2b"
	"github.com/nikandfor/errors"
	"github.com/ugorji/go/codec"
)

const (
	imageMagic   = "TAPEC-IMG"
	imageVersion = 1
)

type envelope struct {
	Magic   string
	Version int
	Sum     uint64
	Payload []byte
}

var mh = func() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.RawToString = true
	h.WriteExt = true
	h.SignedInteger = true
	h.Canonical = true
	return h
}()

// Checksum is the 8 byte BLAKE2b hash of raw.
func Checksum(raw []byte) uint64 {
	h, err := blake2b.New(&blake2b.Config{Size: 8})
	if err != nil {
		panic(err)
	}
	h.Write(raw)
	by := h.Sum(nil)
	return binary.LittleEndian.Uint64(by[:8])
}

// WriteImage encodes img as msgpack inside a checksummed envelope.
func WriteImage(w io.Writer, img *Image) error {
	var payload bytes.Buffer
	if err := codec.NewEncoder(&payload, mh).Encode(img); err != nil {
		return errors.Wrap(err, "encode image")
	}
	env := envelope{
		Magic:   imageMagic,
		Version: imageVersion,
		Sum:     Checksum(payload.Bytes()),
		Payload: payload.Bytes(),
	}
	if err := codec.NewEncoder(w, mh).Encode(&env); err != nil {
		return errors.Wrap(err, "write image")
	}
	return nil
}

// ReadImage decodes an image written by WriteImage. A payload whose checksum
// does not match is rejected.
func ReadImage(r io.Reader) (*Image, error) {
	var env envelope
	if err := codec.NewDecoder(r, mh).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "read image")
	}
	if env.Magic != imageMagic {
		return nil, ErrImage.New("not an image file: magic %q", env.Magic)
	}
	if env.Version != imageVersion {
		return nil, ErrImage.New("image version %d, want %d", env.Version, imageVersion)
	}
	if sum := Checksum(env.Payload); sum != env.Sum {
		return nil, ErrImage.New("checksum mismatch: %016x, want %016x", sum, env.Sum)
	}

	img := &Image{}
	if err := codec.NewDecoderBytes(env.Payload, mh).Decode(img); err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	if _, err := Decode(img.Code); err != nil {
		return nil, errors.Wrap(err, "image code")
	}
	return img, nil
}
