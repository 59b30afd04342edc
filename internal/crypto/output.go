package crypto

import "encoding/binary"

// TargetMagic is the little-endian magic of a correctly decrypted metadata file.
const TargetMagic uint32 = 0xFAB11BAF

// OutputCheck is the informational verdict on the final output.
type OutputCheck struct {
	// Checked is false when the output is shorter than four bytes.
	Checked bool
	Magic   uint32
	Match   bool
}

// CheckOutput inspects the first four bytes of out for TargetMagic.
func CheckOutput(out []byte) OutputCheck {
	if len(out) < 4 {
		return OutputCheck{}
	}
	magic := binary.LittleEndian.Uint32(out[:4])
	return OutputCheck{
		Checked: true,
		Magic:   magic,
		Match:   magic == TargetMagic,
	}
}
