package container

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Layout describes the pieces of a container to be assembled by Build.
type Layout struct {
	// Key is written at KeyOffset; shorter keys are zero-padded to KeySize.
	Key []byte
	// Bytecode is written at BytecodeOffset and zero-padded to at least one block.
	Bytecode []byte
	// Payload is the already-encoded payload appended after the header.
	Payload []byte
}

// Build assembles a container from its regions. It is the packer-side
// counterpart of Parse and is used to produce synthetic containers.
func Build(l Layout) ([]byte, error) {
	if len(l.Key) > KeySize {
		return nil, fmt.Errorf("key region too large: %d bytes (max %d)", len(l.Key), KeySize)
	}
	if len(l.Payload) == 0 {
		return nil, fmt.Errorf("payload must not be empty")
	}
	if uint64(len(l.Payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("payload too large: %d bytes", len(l.Payload))
	}

	headerSize := BytecodeOffset + len(l.Bytecode)
	if headerSize < MinHeaderSize {
		headerSize = MinHeaderSize
	}

	out := make([]byte, headerSize+len(l.Payload))
	binary.LittleEndian.PutUint32(out[0:4], Magic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(l.Payload)))
	copy(out[KeyOffset:BytecodeOffset], l.Key)
	copy(out[BytecodeOffset:headerSize], l.Bytecode)
	copy(out[headerSize:], l.Payload)

	return out, nil
}
