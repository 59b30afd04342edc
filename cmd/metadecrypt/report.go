package main

import (
	"fmt"
	"io"

	"github.com/kenneth/metadata-decryptor/internal/crypto"
)

// printHeader prints the container layout known after parsing. Fields are
// printed only once the pipeline got far enough to know them.
func printHeader(w io.Writer, result *crypto.Result) {
	if result == nil || result.EncryptedSize == 0 {
		return
	}
	fmt.Fprintf(w, "Encrypted data size: %d bytes\n", result.EncryptedSize)
	fmt.Fprintf(w, "Total file size: %d bytes\n", result.TotalSize)
	fmt.Fprintf(w, "Header size: %d bytes (0x%x)\n", result.HeaderSize, result.HeaderSize)
	fmt.Fprintf(w, "Data starts at offset: 0x%x\n", result.DataOffset)
}

func printWarnings(w io.Writer, result *crypto.Result) {
	if result == nil {
		return
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "[!] Warning: %s\n", warning)
	}
}

func printOutputCheck(w io.Writer, check crypto.OutputCheck) {
	if !check.Checked {
		return
	}
	fmt.Fprintf(w, "First 4 bytes of decrypted data: 0x%x\n", check.Magic)
	if check.Match {
		fmt.Fprintln(w, "[SUCCEED] Valid IL2CPP metadata magic (AF 1B B1 FA)")
	}
}
