package parser

import (
	"errors"
	"io"
)

var (
	errInvalidUnreadByte = errors.New("amlStreamReader: invalid use of UnreadByte")
)

// amlStreamReader provides bounds-checked sequential access to AML
// bytecode.
type amlStreamReader struct {
	offset uint32
	data   []byte
}

// Init sets up the reader so it can read the contents of data. If a non-zero
// initialOffset is specified, it will be used as the current offset in the
// stream.
func (r *amlStreamReader) Init(data []byte, initialOffset uint32) {
	r.data = data
	r.SetOffset(initialOffset)
}

// EOF returns true if the end of the stream has been reached.
func (r *amlStreamReader) EOF() bool {
	return r.offset >= uint32(len(r.data))
}

// Len returns the length of the underlying stream.
func (r *amlStreamReader) Len() uint32 {
	return uint32(len(r.data))
}

// ReadByte returns the next byte from the stream.
func (r *amlStreamReader) ReadByte() (byte, error) {
	if r.EOF() {
		return 0, io.EOF
	}

	r.offset++
	return r.data[r.offset-1], nil
}

// ReadBytes returns the next count bytes from the stream. The returned slice
// shares storage with the stream.
func (r *amlStreamReader) ReadBytes(count uint32) ([]byte, error) {
	if uint64(r.offset)+uint64(count) > uint64(len(r.data)) {
		return nil, io.ErrUnexpectedEOF
	}

	r.offset += count
	return r.data[r.offset-count : r.offset], nil
}

// PeekByte returns the next byte from the stream without advancing the read
// pointer.
func (r *amlStreamReader) PeekByte() (byte, error) {
	if r.EOF() {
		return 0, io.EOF
	}

	return r.data[r.offset], nil
}

// UnreadByte moves back the read pointer by one byte.
func (r *amlStreamReader) UnreadByte() error {
	if r.offset == 0 {
		return errInvalidUnreadByte
	}

	r.offset--
	return nil
}

// Offset returns the current offset.
func (r *amlStreamReader) Offset() uint32 {
	return r.offset
}

// SetOffset sets the reader offset to the supplied value. Offsets past the
// end of the stream are clamped.
func (r *amlStreamReader) SetOffset(off uint32) {
	if dataLen := uint32(len(r.data)); off > dataLen {
		off = dataLen
	}

	r.offset = off
}
