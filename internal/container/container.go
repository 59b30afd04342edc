// Package container parses the fixed-layout header of packed metadata
// containers and exposes the key, bytecode and payload regions as
// bounds-checked slices of the original input.
package container

import (
	"encoding/binary"
	"fmt"
)

const (
	// Magic is the little-endian value of the first four bytes of every container.
	Magic uint32 = 0x1357FEDA

	// BlockSize is the fixed transform block size of the payload.
	BlockSize = 64

	// KeyOffset is the absolute offset of the key region.
	KeyOffset = 8

	// BytecodeOffset is the absolute offset of the bytecode region.
	BytecodeOffset = 0x108

	// KeySize is the length of the key region; it ends where the bytecode region begins.
	KeySize = BytecodeOffset - KeyOffset

	// MinHeaderSize is the smallest header that holds the bytecode region
	// and one block of key-adjacent material.
	MinHeaderSize = BytecodeOffset + BlockSize

	// fieldsSize covers the magic and encrypted size fields.
	fieldsSize = 8
)

// Container is a validated view over an encrypted container. All slices
// alias the input passed to Parse and are capacity-clipped so that
// appending to them can never overwrite a neighbouring region.
type Container struct {
	raw []byte

	Magic         uint32
	EncryptedSize uint32
	HeaderSize    int
}

// Parse validates the header of data and derives the region offsets.
// data is not copied; callers must not mutate it while the Container is in use.
func Parse(data []byte) (*Container, error) {
	if len(data) < fieldsSize {
		return nil, formatErrorf(ReasonTooSmall, "%d bytes", len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != Magic {
		return nil, formatErrorf(ReasonBadMagic, "0x%x", magic)
	}

	encryptedSize := binary.LittleEndian.Uint32(data[4:8])
	if encryptedSize == 0 || uint64(encryptedSize) > uint64(len(data)) {
		return nil, formatErrorf(ReasonBadEncryptedSize, "%d bytes of %d", encryptedSize, len(data))
	}

	headerSize := len(data) - int(encryptedSize)
	if headerSize < MinHeaderSize {
		return nil, formatErrorf(ReasonHeaderTooSmall, "%d bytes (0x%x), need at least %d", headerSize, headerSize, MinHeaderSize)
	}

	return &Container{
		raw:           data,
		Magic:         magic,
		EncryptedSize: encryptedSize,
		HeaderSize:    headerSize,
	}, nil
}

// TotalSize returns the length of the whole container.
func (c *Container) TotalSize() int {
	return len(c.raw)
}

// DataOffset returns the absolute offset of the encrypted payload.
func (c *Container) DataOffset() int {
	return c.HeaderSize
}

// KeyRegion returns the key material window [KeyOffset, BytecodeOffset).
func (c *Container) KeyRegion() []byte {
	return c.raw[KeyOffset:BytecodeOffset:BytecodeOffset]
}

// BytecodeRegion returns the bytecode window [BytecodeOffset, HeaderSize).
func (c *Container) BytecodeRegion() []byte {
	return c.raw[BytecodeOffset:c.HeaderSize:c.HeaderSize]
}

// Payload returns the encrypted payload [HeaderSize, HeaderSize+EncryptedSize).
// The returned slice aliases the input; use WorkingCopy for a mutable buffer.
func (c *Container) Payload() []byte {
	end := c.HeaderSize + int(c.EncryptedSize)
	return c.raw[c.HeaderSize:end:end]
}

// WorkingCopy returns a fresh mutable copy of the payload.
func (c *Container) WorkingCopy() []byte {
	buf := make([]byte, c.EncryptedSize)
	copy(buf, c.Payload())
	return buf
}

// String summarizes the derived layout.
func (c *Container) String() string {
	return fmt.Sprintf("container{total=%d header=0x%x encrypted=%d}", c.TotalSize(), c.HeaderSize, c.EncryptedSize)
}
