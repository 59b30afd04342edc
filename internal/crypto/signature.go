package crypto

import (
	"bytes"
	"fmt"
	"strings"
)

// SignatureMarker is the ASCII marker the packer prepends to the plaintext.
const SignatureMarker = "CODEPHIL"

// WarningKind classifies a non-fatal pipeline finding.
type WarningKind string

// WarningSignatureMismatch means the decrypted payload does not start with SignatureMarker.
const WarningSignatureMismatch WarningKind = "SignatureMismatch"

// Warning is a non-fatal finding returned alongside a successful result.
type Warning struct {
	Kind WarningKind
	// Found holds the bytes seen where the marker was expected.
	Found []byte
}

// String renders the warning for diagnostics.
func (w Warning) String() string {
	switch w.Kind {
	case WarningSignatureMismatch:
		return fmt.Sprintf("'%s' signature not found, found: %s", SignatureMarker, FormatBytes(w.Found))
	default:
		return string(w.Kind)
	}
}

// CheckSignature verifies that buf starts with SignatureMarker and returns
// the final output. The marker-sized prefix is stripped whenever buf is
// longer than the marker, whether or not it matched; otherwise buf is
// returned unchanged. A mismatch is reported as a warning.
func CheckSignature(buf []byte) ([]byte, *Warning) {
	var warning *Warning
	if !bytes.HasPrefix(buf, []byte(SignatureMarker)) {
		n := len(SignatureMarker)
		if len(buf) < n {
			n = len(buf)
		}
		found := make([]byte, n)
		copy(found, buf[:n])
		warning = &Warning{Kind: WarningSignatureMismatch, Found: found}
	}

	if len(buf) > len(SignatureMarker) {
		return buf[len(SignatureMarker):], warning
	}
	return buf, warning
}

// FormatBytes renders printable ASCII as-is and every other byte as a \xNN escape.
func FormatBytes(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c <= 0x7e {
			sb.WriteByte(c)
		} else {
			fmt.Fprintf(&sb, "\\x%02x", c)
		}
	}
	return sb.String()
}
