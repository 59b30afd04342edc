package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenneth/metadata-decryptor/internal/audit"
	"github.com/kenneth/metadata-decryptor/internal/container"
	"github.com/kenneth/metadata-decryptor/internal/crypto"
	"github.com/kenneth/metadata-decryptor/internal/storage"
)

// defaultPackBytecodeSize is the bytecode region size used when no
// bytecode file is given: the minimum the header allows.
const defaultPackBytecodeSize = container.MinHeaderSize - container.BytecodeOffset

type packOptions struct {
	keyFile      string
	bytecodeFile string
}

func newPackCommand(global *globalOptions) *cobra.Command {
	opts := &packOptions{}

	cmd := &cobra.Command{
		Use:   "pack <plaintext> <output>",
		Short: "Packs plaintext metadata into an encrypted container",
		Long: "Packs plaintext into a container that decrypts back to it with the same\n" +
			"transform. Key and bytecode regions are read from files when given and\n" +
			"generated randomly otherwise.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPack(cmd, global, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVar(&opts.keyFile, "key-file", "", "File holding the key region (at most 256 bytes)")
	cmd.Flags().StringVar(&opts.bytecodeFile, "bytecode-file", "", "File holding the bytecode region")
	return cmd
}

func runPack(cmd *cobra.Command, global *globalOptions, opts *packOptions, input, output string) (err error) {
	ctx := cmd.Context()

	a, err := newApp(ctx, cmd, global, input, output, opts.keyFile, opts.bytecodeFile)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	start := time.Now()
	run := audit.Run{Input: input, Output: output, Transform: a.transformName}
	defer func() {
		if a.audit == nil {
			return
		}
		run.Duration = time.Since(start)
		run.Err = err
		run.ErrorClass = ErrorClass(err)
		if auditErr := a.audit.LogPack(run); auditErr != nil {
			a.logger.WithError(auditErr).Warn("Failed to write audit event")
		}
	}()

	// Plaintext, key and bytecode are taken verbatim.
	raw := storage.NewStore(storage.Options{Objects: a.objects, Logger: a.logger})

	plaintext, err := raw.Load(ctx, input)
	if err != nil {
		return err
	}
	run.InputSize = len(plaintext)

	key, err := regionBytes(ctx, raw, opts.keyFile, container.KeySize)
	if err != nil {
		return err
	}
	bytecode, err := regionBytes(ctx, raw, opts.bytecodeFile, defaultPackBytecodeSize)
	if err != nil {
		return err
	}

	engine, err := crypto.NewEngine(crypto.Options{
		Transform: a.transform,
		Workers:   a.cfg.Decrypt.Workers,
	})
	if err != nil {
		return err
	}

	image, err := engine.Pack(ctx, plaintext, key, bytecode)
	if err != nil {
		return err
	}

	if err = a.store.Save(ctx, output, image); err != nil {
		return err
	}
	run.OutputSize = len(image)

	fmt.Fprintf(a.out, "Packed %d bytes -> %d byte container saved to %s\n", len(plaintext), len(image), output)
	a.logger.WithFields(logrus.Fields{
		"transform":     a.transformName,
		"key_size":      len(key),
		"bytecode_size": len(bytecode),
	}).Debug("Container packed")

	return nil
}

// regionBytes loads a header region from location, or generates size random
// bytes when location is empty.
func regionBytes(ctx context.Context, store *storage.Store, location string, size int) ([]byte, error) {
	if location != "" {
		return store.Load(ctx, location)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate region: %w", err)
	}
	return buf, nil
}
