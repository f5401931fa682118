// Package artifact implements the binary build artifact: a
// magic-prefixed, length-prefixed sequential encoding of a
// domain.Build, the on-disk container the compiler emits and the
// runtime loads (spec.md §4.1).
package artifact

import (
	"encoding/binary"

	"github.com/waveless-run/waveless/internal/corerr"
)

// Magic is the 15-byte ASCII prefix every artifact begins with.
const Magic = "waveless_binary"

// Writer accumulates the compact, non-self-describing body of an
// artifact. Every method always writes its field: invariant 6 of
// spec.md §3 ("the binary encoding must emit every field") holds by
// construction here because, unlike the source's single serde
// derive shared with the human-readable TOML form, this writer has no
// skip-if-empty behaviour at all — there is nothing to toggle a mode
// flag for.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) WriteInt64(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	w.buf = append(w.buf, tmp[:]...)
}

func (w *Writer) WriteRawBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteBytes writes a length-prefixed byte string.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) WriteString(s string) {
	w.WriteBytes([]byte(s))
}

// WriteOptionalString writes a presence byte followed by the string
// when present.
func (w *Writer) WriteOptionalString(s *string) {
	if s == nil {
		w.WriteBool(false)
		return
	}
	w.WriteBool(true)
	w.WriteString(*s)
}

func (w *Writer) WriteOptionalInt(v *int) {
	if v == nil {
		w.WriteBool(false)
		return
	}
	w.WriteBool(true)
	w.WriteUint32(uint32(*v))
}

func (w *Writer) WriteStringSlice(items []string) {
	w.WriteUint32(uint32(len(items)))
	for _, item := range items {
		w.WriteString(item)
	}
}

// WriteSeq writes a length-prefixed sequence, calling encodeOne for
// every element.
func WriteSeq[T any](w *Writer, items []T, encodeOne func(*Writer, T)) {
	w.WriteUint32(uint32(len(items)))
	for _, item := range items {
		encodeOne(w, item)
	}
}

// Reader consumes a Writer's output. Every read that runs past the end
// of the buffer, or that decodes an out-of-range tag/length, returns a
// corerr error (Truncated / Schema respectively), matching the fatal
// taxonomy of spec.md §4.1 and §7.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) remaining() int { return len(r.buf) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, corerr.ErrTruncated
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, corerr.Expected(500, "invalid boolean tag in binary artifact")
	}
	return v == 1, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (r *Reader) ReadRawBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// maxReasonableLength guards against a corrupt length prefix causing an
// enormous allocation; any real artifact field is far smaller.
const maxReasonableLength = 64 << 20

func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > maxReasonableLength {
		return nil, corerr.Expected(500, "binary artifact declares an implausible field length")
	}
	return r.ReadRawBytes(int(n))
}

func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) ReadOptionalString() (*string, error) {
	present, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	s, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Reader) ReadOptionalInt() (*int, error) {
	present, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	v, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	n := int(v)
	return &n, nil
}

func (r *Reader) ReadStringSlice() ([]string, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > maxReasonableLength {
		return nil, corerr.Expected(500, "binary artifact declares an implausible sequence length")
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func ReadSeq[T any](r *Reader, decodeOne func(*Reader) (T, error)) ([]T, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if n > maxReasonableLength {
		return nil, corerr.Expected(500, "binary artifact declares an implausible sequence length")
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]T, 0, n)
	for i := uint32(0); i < n; i++ {
		item, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
