package crypto

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransform records every call and XORs the valid bytes with 0x5A.
type recordingTransform struct {
	mu    sync.Mutex
	calls []recordedCall
}

type recordedCall struct {
	blockSize int
	bufLen    int
	validLen  int
	key       []byte
	bytecode  []byte
}

func (r *recordingTransform) TransformBlock(bytecode []byte, blockSize int, key []byte, buf []byte, validLen int) {
	r.mu.Lock()
	r.calls = append(r.calls, recordedCall{
		blockSize: blockSize,
		bufLen:    len(buf),
		validLen:  validLen,
		key:       key,
		bytecode:  bytecode,
	})
	r.mu.Unlock()

	for i := 0; i < validLen; i++ {
		buf[i] ^= 0x5A
	}
}

// greedyTransform ignores validLen and overwrites the whole nominal block.
var greedyTransform = TransformFunc(func(_ []byte, blockSize int, _ []byte, buf []byte, _ int) {
	for i := 0; i < blockSize; i++ {
		buf[i] = 0xCC
	}
})

func TestChunks_Plan(t *testing.T) {
	chunks := Chunks(130)
	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{Index: 0, Offset: 0, Length: 64}, chunks[0])
	assert.Equal(t, Chunk{Index: 1, Offset: 64, Length: 64}, chunks[1])
	assert.Equal(t, Chunk{Index: 2, Offset: 128, Length: 2}, chunks[2])

	assert.Empty(t, Chunks(0))
	assert.Len(t, Chunks(64), 1)
	assert.Len(t, Chunks(65), 2)
	assert.Equal(t, 1, Chunks(1)[0].Length)
}

func TestChunkDecryptor_Invocations(t *testing.T) {
	rec := &recordingTransform{}
	d := NewChunkDecryptor(rec, 1)

	key := []byte("key-region")
	bytecode := []byte("bytecode-region")
	buf := make([]byte, 130)

	n := d.Apply(bytecode, key, buf)
	assert.Equal(t, 3, n)
	require.Len(t, rec.calls, 3)

	for i, call := range rec.calls {
		assert.Equal(t, BlockSize, call.blockSize, "call %d", i)
		assert.Equal(t, BlockSize, call.bufLen, "call %d", i)
		assert.Same(t, &key[0], &call.key[0], "key must be the same slice for every block")
		assert.Same(t, &bytecode[0], &call.bytecode[0], "bytecode must be the same slice for every block")
	}
	assert.Equal(t, 64, rec.calls[0].validLen)
	assert.Equal(t, 64, rec.calls[1].validLen)
	assert.Equal(t, 2, rec.calls[2].validLen)
}

func TestChunkDecryptor_PartialChunkGuard(t *testing.T) {
	backing := make([]byte, 140)
	for i := range backing {
		backing[i] = 0x11
	}

	d := NewChunkDecryptor(greedyTransform, 1)
	d.Apply(nil, nil, backing[:130])

	for i := 0; i < 130; i++ {
		if backing[i] != 0xCC {
			t.Fatalf("byte %d not transformed", i)
		}
	}
	for i := 130; i < len(backing); i++ {
		if backing[i] != 0x11 {
			t.Fatalf("byte %d beyond payload was modified", i)
		}
	}
}

func TestChunkDecryptor_XORRoundTrip(t *testing.T) {
	tr, err := NewTransform(TransformXOR, TransformOptions{XORValue: 0xA5})
	require.NoError(t, err)

	for _, size := range []int{1, 2, 63, 64, 65, 130, 1000} {
		original := make([]byte, size)
		for i := range original {
			original[i] = byte(i * 31)
		}
		buf := append([]byte(nil), original...)

		d := NewChunkDecryptor(tr, 1)
		d.Apply(nil, nil, buf)
		if size > 0 {
			assert.NotEqual(t, original, buf, "size %d", size)
		}
		d.Apply(nil, nil, buf)
		assert.Equal(t, original, buf, "size %d", size)
	}
}

func TestChunkDecryptor_ParallelMatchesSequential(t *testing.T) {
	key := bytes.Repeat([]byte{0x42, 0x17}, 128)
	bytecode := bytes.Repeat([]byte{0x99}, 64)

	for _, name := range SupportedTransforms() {
		tr, err := NewTransform(name, DefaultTransformOptions())
		require.NoError(t, err)

		payload := make([]byte, 64*37+19)
		for i := range payload {
			payload[i] = byte(i ^ (i >> 3))
		}

		seq := append([]byte(nil), payload...)
		par := append([]byte(nil), payload...)

		NewChunkDecryptor(tr, 1).Apply(bytecode, key, seq)
		n := NewChunkDecryptor(tr, 8).Apply(bytecode, key, par)

		assert.Equal(t, 38, n)
		assert.Equal(t, seq, par, "transform %s", name)
	}
}

func TestChunkDecryptor_ParallelUsesEveryChunk(t *testing.T) {
	rec := &recordingTransform{}
	buf := make([]byte, 64*10+1)

	n := NewChunkDecryptor(rec, 4).Apply(nil, nil, buf)
	assert.Equal(t, 11, n)
	assert.Len(t, rec.calls, 11)
	for i, b := range buf {
		if b != 0x5A {
			t.Fatalf("byte %d not transformed exactly once", i)
		}
	}
}

func TestNewChunkDecryptor_ClampsWorkers(t *testing.T) {
	for _, workers := range []int{-3, 0, 1} {
		d := NewChunkDecryptor(TransformFunc(identityBlock), workers)
		assert.Equal(t, 1, d.workers, "workers=%d", workers)
	}
	assert.Equal(t, 6, NewChunkDecryptor(TransformFunc(identityBlock), 6).workers)
}

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	pool := newWorkerPool(3)
	var mu sync.Mutex
	seen := 0
	for i := 0; i < 50; i++ {
		pool.submit(func() {
			mu.Lock()
			seen++
			mu.Unlock()
		})
	}
	pool.wait()
	assert.Equal(t, 50, seen)
}
