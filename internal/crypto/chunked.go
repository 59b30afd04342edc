package crypto

import (
	"github.com/kenneth/metadata-decryptor/internal/container"
)

// BlockSize is the fixed transform block size.
const BlockSize = container.BlockSize

// Chunk is one block of the payload: its offset in the working buffer and
// the number of payload bytes it holds (BlockSize except possibly the last).
type Chunk struct {
	Index  int
	Offset int
	Length int
}

// Chunks returns the block plan for a payload of the given size.
func Chunks(size int) []Chunk {
	if size <= 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (size+BlockSize-1)/BlockSize)
	for offset := 0; offset < size; offset += BlockSize {
		length := size - offset
		if length > BlockSize {
			length = BlockSize
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Offset: offset, Length: length})
	}
	return chunks
}

// ChunkDecryptor applies a BlockTransform to every block of a working buffer.
type ChunkDecryptor struct {
	transform BlockTransform
	workers   int
}

// NewChunkDecryptor creates a decryptor. With workers <= 1 blocks are
// processed sequentially in increasing offset order; otherwise they are
// spread over a pool of that many goroutines.
func NewChunkDecryptor(transform BlockTransform, workers int) *ChunkDecryptor {
	if workers < 1 {
		workers = 1
	}
	return &ChunkDecryptor{
		transform: transform,
		workers:   workers,
	}
}

// Apply transforms buf in place and returns the number of blocks processed.
// bytecode and key are passed unchanged to every block.
func (d *ChunkDecryptor) Apply(bytecode, key, buf []byte) int {
	chunks := Chunks(len(buf))

	if d.workers == 1 || len(chunks) < 2 {
		for _, ch := range chunks {
			d.processChunk(bytecode, key, buf, ch)
		}
		return len(chunks)
	}

	pool := newWorkerPool(d.workers)
	for _, ch := range chunks {
		ch := ch
		pool.submit(func() {
			d.processChunk(bytecode, key, buf, ch)
		})
	}
	pool.wait()

	return len(chunks)
}

// processChunk hands the transform a full BlockSize segment. Full blocks are
// transformed in place through a capacity-clipped slice; a short final block
// is staged in a zeroed scratch block and only its valid bytes are copied
// back, so a transform that touches the whole nominal block cannot reach
// past the end of the buffer.
func (d *ChunkDecryptor) processChunk(bytecode, key, buf []byte, ch Chunk) {
	end := ch.Offset + ch.Length
	if ch.Length == BlockSize {
		d.transform.TransformBlock(bytecode, BlockSize, key, buf[ch.Offset:end:end], ch.Length)
		return
	}

	var scratch [BlockSize]byte
	copy(scratch[:], buf[ch.Offset:end])
	d.transform.TransformBlock(bytecode, BlockSize, key, scratch[:], ch.Length)
	copy(buf[ch.Offset:end], scratch[:ch.Length])
}
