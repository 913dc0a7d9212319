// Package binary provides bounds-checked cursors for parsing untrusted media headers.
package binary

import (
	"fmt"
	"io"
)

// OutOfBoundsError is returned when a read would leave the readable window.
type OutOfBoundsError struct {
	Path   string
	What   string
	Offset int64
	Length int
	Size   int64
}

func (e *OutOfBoundsError) Error() string {
	if e.Offset < 0 || e.Offset >= e.Size {
		return fmt.Sprintf("%s: offset %d out of bounds (file size: %d) while reading %s",
			e.Path, e.Offset, e.Size, e.What)
	}
	return fmt.Sprintf("%s: read of %d bytes at offset %d would exceed file size %d while reading %s",
		e.Path, e.Length, e.Offset, e.Size, e.What)
}

// SafeReader wraps io.ReaderAt with bounds checking and helpful error messages.
type SafeReader struct {
	r    io.ReaderAt
	path string
	size int64
}

// NewSafeReader creates a new SafeReader over the first size bytes of r.
func NewSafeReader(r io.ReaderAt, size int64, path string) *SafeReader {
	return &SafeReader{
		r:    r,
		size: size,
		path: path,
	}
}

// Path returns the file path associated with this reader.
func (sr *SafeReader) Path() string {
	return sr.path
}

// Size returns the readable window size.
func (sr *SafeReader) Size() int64 {
	return sr.size
}

// ReadAt fills b from offset off. what names the field for error messages.
func (sr *SafeReader) ReadAt(b []byte, off int64, what string) error {
	if len(b) == 0 {
		return nil
	}
	if off < 0 || off >= sr.size || off+int64(len(b)) > sr.size {
		return &OutOfBoundsError{Path: sr.path, What: what, Offset: off, Length: len(b), Size: sr.size}
	}

	n, err := sr.r.ReadAt(b, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%s: failed to read %s at offset %d: %w", sr.path, what, off, err)
	}

	if n < len(b) {
		return fmt.Errorf("%s: short read for %s at offset %d: got %d bytes, expected %d",
			sr.path, what, off, n, len(b))
	}

	return nil
}

// Window returns a SafeReader over the length bytes starting at off, cut to
// the end of sr. Offsets inside the window are relative to off.
func (sr *SafeReader) Window(off, length int64) *SafeReader {
	off = max(off, 0)
	n := max(min(off+length, sr.size)-off, 0)
	return &SafeReader{
		r:    io.NewSectionReader(sr.r, off, n),
		size: n,
		path: sr.path,
	}
}

// Read reads a big-endian value of type T at the given offset.
func Read[T Unsigned](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, BigEndian)
}

// Reader provides sequential reading with automatic offset tracking.
type Reader struct {
	*SafeReader
	offset int64
}

// NewReader creates a new Reader starting at the given offset.
func NewReader(sr *SafeReader, offset int64) *Reader {
	return &Reader{
		SafeReader: sr,
		offset:     offset,
	}
}

// ReadValue reads a big-endian value and advances the offset.
func ReadValue[T Unsigned](r *Reader, what string) (T, error) {
	val, err := Read[T](r.SafeReader, r.offset, what)
	if err != nil {
		var zero T
		return zero, err
	}
	r.offset += int64(sizeOf[T]())
	return val, nil
}

// ReadBytes reads n bytes and advances the offset.
func (r *Reader) ReadBytes(n int, what string) ([]byte, error) {
	if n < 0 {
		return nil, &OutOfBoundsError{Path: r.path, What: what, Offset: r.offset, Length: n, Size: r.size}
	}
	buf := make([]byte, n)
	if err := r.SafeReader.ReadAt(buf, r.offset, what); err != nil {
		return nil, err
	}
	r.offset += int64(n)
	return buf, nil
}

// ReadString reads a string of the given length and advances the offset.
func (r *Reader) ReadString(length int, what string) (string, error) {
	buf, err := r.ReadBytes(length, what)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Skip advances the offset by n bytes.
func (r *Reader) Skip(n int64) {
	r.offset += n
}

// Offset returns the current offset.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Remaining returns the number of bytes left before the end of the window.
// It is never negative.
func (r *Reader) Remaining() int64 {
	if r.offset >= r.size {
		return 0
	}
	return r.size - r.offset
}

// ChainReader allows chaining multiple reads with deferred error checking.
// Once a read fails every later read is a no-op returning zero values.
type ChainReader struct {
	*Reader
	err error
}

// NewChainReader creates a new ChainReader.
func NewChainReader(r *Reader) *ChainReader {
	return &ChainReader{Reader: r}
}

// ReadChained reads a value with deferred error checking.
func ReadChained[T Unsigned](cr *ChainReader, what string) T {
	if cr.err != nil {
		var zero T
		return zero
	}

	val, err := ReadValue[T](cr.Reader, what)
	if err != nil {
		cr.err = err
		var zero T
		return zero
	}

	return val
}

// ReadEndianChained is ReadChained for an explicit byte order.
func ReadEndianChained[T Unsigned](cr *ChainReader, what string, endian Endianness) T {
	var zero T
	if cr.err != nil {
		return zero
	}

	val, err := ReadEndian[T](cr.SafeReader, cr.offset, what, endian)
	if err != nil {
		cr.err = err
		return zero
	}
	cr.offset += int64(sizeOf[T]())
	return val
}

// String reads a fixed length string, accumulating any error.
func (cr *ChainReader) String(length int, what string) string {
	if cr.err != nil {
		return ""
	}

	val, err := cr.Reader.ReadString(length, what)
	if err != nil {
		cr.err = err
		return ""
	}

	return val
}

// Bytes reads n raw bytes, accumulating any error.
func (cr *ChainReader) Bytes(n int, what string) []byte {
	if cr.err != nil {
		return nil
	}

	val, err := cr.Reader.ReadBytes(n, what)
	if err != nil {
		cr.err = err
		return nil
	}

	return val
}

// Skip advances the cursor by n bytes. Skipping past the end of the window
// is recorded as an error so that truncated headers are reported.
func (cr *ChainReader) Skip(n int64, what string) {
	if cr.err != nil {
		return
	}
	if n < 0 || cr.offset+n > cr.size {
		cr.err = &OutOfBoundsError{Path: cr.path, What: what, Offset: cr.offset, Length: int(n), Size: cr.size}
		return
	}
	cr.offset += n
}

// PascalString reads a string prefixed by a one byte length.
// When clamp is set the length is cut down to the bytes left in the window
// instead of failing.
func (cr *ChainReader) PascalString(what string, clamp bool) string {
	n := int(ReadChained[uint8](cr, what+" length"))
	if cr.err != nil {
		return ""
	}
	if clamp {
		if rem := cr.Remaining(); int64(n) > rem {
			n = int(rem)
		}
	}
	return cr.String(n, what)
}

// Error returns the accumulated error, if any.
func (cr *ChainReader) Error() error {
	return cr.err
}
