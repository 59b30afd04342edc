package crypto

import (
	"bytes"
	"testing"
)

func TestNewTransform_Supported(t *testing.T) {
	for _, name := range SupportedTransforms() {
		tr, err := NewTransform(name, DefaultTransformOptions())
		if err != nil {
			t.Fatalf("NewTransform(%q) unexpected error: %v", name, err)
		}
		if tr == nil {
			t.Fatalf("NewTransform(%q) returned nil transform", name)
		}
		if !IsTransformSupported(name) {
			t.Fatalf("IsTransformSupported(%q) = false", name)
		}
	}

	if _, err := NewTransform("rot13", DefaultTransformOptions()); err == nil {
		t.Fatal("expected error for unsupported transform")
	}
	if IsTransformSupported("rot13") {
		t.Fatal("IsTransformSupported(rot13) = true")
	}
}

func TestTransforms_AreInvolutions(t *testing.T) {
	key := make([]byte, 256)
	for i := range key {
		key[i] = byte(i * 7)
	}
	bytecode := make([]byte, 64)
	for i := range bytecode {
		bytecode[i] = byte(0xC0 ^ i)
	}

	for _, name := range SupportedTransforms() {
		t.Run(name, func(t *testing.T) {
			tr, err := NewTransform(name, TransformOptions{XORValue: 0x33})
			if err != nil {
				t.Fatalf("NewTransform failed: %v", err)
			}

			for _, valid := range []int{1, 2, 17, BlockSize} {
				block := make([]byte, BlockSize)
				for i := range block {
					block[i] = byte(i + 1)
				}
				original := append([]byte(nil), block...)

				tr.TransformBlock(bytecode, BlockSize, key, block, valid)
				tr.TransformBlock(bytecode, BlockSize, key, block, valid)

				if !bytes.Equal(block, original) {
					t.Fatalf("valid=%d: double application did not restore block", valid)
				}
			}
		})
	}
}

func TestTransforms_HonorValidLength(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	bytecode := []byte{9, 8, 7}

	for _, name := range SupportedTransforms() {
		tr, err := NewTransform(name, DefaultTransformOptions())
		if err != nil {
			t.Fatalf("NewTransform failed: %v", err)
		}

		block := bytes.Repeat([]byte{0xEE}, BlockSize)
		tr.TransformBlock(bytecode, BlockSize, key, block, 5)
		for i := 5; i < BlockSize; i++ {
			if block[i] != 0xEE {
				t.Fatalf("%s: byte %d beyond valid length modified", name, i)
			}
		}
	}
}

func TestXORTransform_Value(t *testing.T) {
	tr, err := NewTransform(TransformXOR, TransformOptions{XORValue: 0xFF})
	if err != nil {
		t.Fatalf("NewTransform failed: %v", err)
	}

	block := make([]byte, BlockSize)
	tr.TransformBlock(nil, BlockSize, nil, block, 3)
	if !bytes.Equal(block[:4], []byte{0xFF, 0xFF, 0xFF, 0x00}) {
		t.Fatalf("unexpected xor output: %x", block[:4])
	}
}

func TestChaCha20Transform_DependsOnKey(t *testing.T) {
	tr, _ := NewTransform(TransformChaCha20, DefaultTransformOptions())

	a := make([]byte, BlockSize)
	b := make([]byte, BlockSize)
	tr.TransformBlock(nil, BlockSize, []byte{1}, a, BlockSize)
	tr.TransformBlock(nil, BlockSize, []byte{2}, b, BlockSize)

	if bytes.Equal(a, b) {
		t.Fatal("expected different keystreams for different keys")
	}
	if bytes.Equal(a, make([]byte, BlockSize)) {
		t.Fatal("expected non-zero keystream")
	}
}
