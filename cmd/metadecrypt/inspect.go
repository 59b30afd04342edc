package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kenneth/metadata-decryptor/internal/container"
	"github.com/kenneth/metadata-decryptor/internal/crypto"
)

func newInspectCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <input>",
		Short: "Validates a container header and prints its layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, global, args[0])
		},
	}
}

func runInspect(cmd *cobra.Command, global *globalOptions, input string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cmd, global, input)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	data, err := a.store.Load(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Loaded %d bytes from %s\n", len(data), input)

	c, err := container.Parse(data)
	if err != nil {
		return fmt.Errorf("invalid container: %w", err)
	}

	chunks := crypto.Chunks(int(c.EncryptedSize))
	last := chunks[len(chunks)-1]

	fmt.Fprintf(a.out, "Magic: 0x%08x\n", c.Magic)
	fmt.Fprintf(a.out, "Encrypted data size: %d bytes\n", c.EncryptedSize)
	fmt.Fprintf(a.out, "Total file size: %d bytes\n", c.TotalSize())
	fmt.Fprintf(a.out, "Header size: %d bytes (0x%x)\n", c.HeaderSize, c.HeaderSize)
	fmt.Fprintf(a.out, "Key region: 0x%x-0x%x (%d bytes)\n", container.KeyOffset, container.BytecodeOffset, len(c.KeyRegion()))
	fmt.Fprintf(a.out, "Bytecode region: 0x%x-0x%x (%d bytes)\n", container.BytecodeOffset, c.HeaderSize, len(c.BytecodeRegion()))
	fmt.Fprintf(a.out, "Data starts at offset: 0x%x\n", c.DataOffset())
	fmt.Fprintf(a.out, "Chunks: %d (last chunk %d bytes)\n", len(chunks), last.Length)

	return nil
}
