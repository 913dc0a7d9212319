package binary

import "encoding/binary"

// Unsigned lists the integer widths the cursors can decode.
type Unsigned interface {
	uint8 | uint16 | uint32 | uint64
}

// Endianness represents byte order for multi-byte values.
type Endianness int

const (
	// BigEndian is used by RealMedia, FLAC STREAMINFO and MP4 boxes.
	BigEndian Endianness = iota

	// LittleEndian is used by RIFF/WAVE and Ogg page headers.
	LittleEndian
)

func (e Endianness) order() binary.ByteOrder {
	if e == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func sizeOf[T Unsigned]() int {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 1
	case uint16:
		return 2
	case uint32:
		return 4
	default:
		return 8
	}
}

// ReadLE reads a little-endian value of type T at the given offset.
//
//	tag, err := binary.ReadLE[uint16](sr, 20, "wave format tag")
func ReadLE[T Unsigned](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, LittleEndian)
}

// ReadBE reads a big-endian value of type T at the given offset.
func ReadBE[T Unsigned](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, BigEndian)
}

// ReadEndian reads a value of type T at the given offset with the given byte order.
func ReadEndian[T Unsigned](sr *SafeReader, off int64, what string, endian Endianness) (T, error) {
	var zero T
	buf := make([]byte, sizeOf[T]())
	if err := sr.ReadAt(buf, off, what); err != nil {
		return zero, err
	}
	return decode[T](buf, endian.order()), nil
}

// Decode interprets b as a value of type T. b must hold at least sizeOf[T] bytes.
func Decode[T Unsigned](b []byte, endian Endianness) T {
	return decode[T](b, endian.order())
}

func decode[T Unsigned](b []byte, order binary.ByteOrder) T {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return T(b[0])
	case uint16:
		return T(order.Uint16(b))
	case uint32:
		return T(order.Uint32(b))
	default:
		return T(order.Uint64(b))
	}
}
