package crypto

// BlockTransform decrypts one payload block in place.
//
// bytecode and key are the header regions of the container and are the same
// slices for every block of a run; implementations must treat them as
// read-only. blockSize is the nominal block size (always 64). buf is the
// block's segment of the working buffer and is at least blockSize bytes
// long; only the first validLen bytes carry payload and only those bytes
// are kept after the call. Implementations must be deterministic and hold
// no state between calls, since blocks may be processed in any order and
// concurrently.
type BlockTransform interface {
	TransformBlock(bytecode []byte, blockSize int, key []byte, buf []byte, validLen int)
}

// TransformFunc adapts an ordinary function to the BlockTransform interface.
type TransformFunc func(bytecode []byte, blockSize int, key []byte, buf []byte, validLen int)

// TransformBlock calls f.
func (f TransformFunc) TransformBlock(bytecode []byte, blockSize int, key []byte, buf []byte, validLen int) {
	f(bytecode, blockSize, key, buf, validLen)
}
