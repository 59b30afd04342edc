package crypto

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/chacha20"
)

const (
	// TransformIdentity leaves every block untouched.
	TransformIdentity = "identity"
	// TransformXOR XORs every byte with a fixed value.
	TransformXOR = "xor"
	// TransformKeyXOR XORs every byte with the key and bytecode regions, both repeated.
	TransformKeyXOR = "keyxor"
	// TransformChaCha20 XORs every block with a ChaCha20 keystream keyed from the key region.
	TransformChaCha20 = "chacha20"

	// DefaultXORValue is the byte used by the xor transform when none is configured.
	DefaultXORValue = 0x5A
)

// TransformOptions carries parameters for the built-in transforms.
type TransformOptions struct {
	// XORValue is the byte used by the xor transform.
	XORValue byte
}

// DefaultTransformOptions returns the default transform parameters.
func DefaultTransformOptions() TransformOptions {
	return TransformOptions{XORValue: DefaultXORValue}
}

// NewTransform returns the built-in transform registered under name.
//
// The built-in transforms stand in for the packer's own block cipher. Every
// one of them is an involution, so the same transform both packs and
// unpacks a container.
func NewTransform(name string, opts TransformOptions) (BlockTransform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case TransformIdentity, "":
		return TransformFunc(identityBlock), nil
	case TransformXOR:
		return xorTransform(opts.XORValue), nil
	case TransformKeyXOR:
		return TransformFunc(keyXORBlock), nil
	case TransformChaCha20:
		return TransformFunc(chacha20Block), nil
	default:
		return nil, fmt.Errorf("unsupported transform: %s", name)
	}
}

// SupportedTransforms lists the names accepted by NewTransform.
func SupportedTransforms() []string {
	names := []string{TransformIdentity, TransformXOR, TransformKeyXOR, TransformChaCha20}
	sort.Strings(names)
	return names
}

// IsTransformSupported reports whether name is a built-in transform.
func IsTransformSupported(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range SupportedTransforms() {
		if n == name {
			return true
		}
	}
	return false
}

func identityBlock(_ []byte, _ int, _ []byte, _ []byte, _ int) {}

func xorTransform(value byte) BlockTransform {
	return TransformFunc(func(_ []byte, _ int, _ []byte, buf []byte, validLen int) {
		for i := 0; i < validLen; i++ {
			buf[i] ^= value
		}
	})
}

func keyXORBlock(bytecode []byte, _ int, key []byte, buf []byte, validLen int) {
	for i := 0; i < validLen; i++ {
		var k byte
		if len(key) > 0 {
			k = key[i%len(key)]
		}
		if len(bytecode) > 0 {
			k ^= bytecode[i%len(bytecode)]
		}
		buf[i] ^= k
	}
}

// chacha20Block uses the first 32 bytes of the key region as the key and the
// first 12 bytes of the bytecode region as the nonce, zero-padding either
// when shorter. Every block starts at counter zero.
func chacha20Block(bytecode []byte, _ int, key []byte, buf []byte, validLen int) {
	var k [chacha20.KeySize]byte
	var nonce [chacha20.NonceSize]byte
	copy(k[:], key)
	copy(nonce[:], bytecode)

	c, err := chacha20.NewUnauthenticatedCipher(k[:], nonce[:])
	if err != nil {
		// Key and nonce have fixed sizes above.
		panic(fmt.Sprintf("chacha20 transform: %v", err))
	}
	c.XORKeyStream(buf[:validLen], buf[:validLen])
}
