package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kenneth/metadata-decryptor/internal/audit"
	"github.com/kenneth/metadata-decryptor/internal/crypto"
)

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configPath string
	workers    int
	transform  string
	xorValue   int
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "metadecrypt <global-metadata.dat> <output_metadata.dat>",
		Short: "Decrypts a packed metadata container",
		Long: "Decrypts a packed metadata container: validates the header, runs the block\n" +
			"transform over the payload in 64-byte chunks, strips the signature marker\n" +
			"and writes the result. Input and output may be local paths or s3://bucket/key.",
		Args:          cobra.ExactArgs(2),
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecrypt(cmd, opts, args[0], args[1])
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the YAML configuration file (default $CONFIG_PATH or metadecrypt.yaml)")
	flags.IntVar(&opts.workers, "workers", 1, "Goroutines used for chunk processing")
	flags.StringVar(&opts.transform, "transform", crypto.TransformIdentity, "Block transform: identity, xor, keyxor, chacha20")
	flags.IntVar(&opts.xorValue, "xor-value", crypto.DefaultXORValue, "Byte used by the xor transform")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	cmd.AddCommand(newPackCommand(opts), newInspectCommand(opts))
	return cmd
}

func runDecrypt(cmd *cobra.Command, opts *globalOptions, input, output string) (err error) {
	ctx := cmd.Context()

	a, err := newApp(ctx, cmd, opts, input, output)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	engine, err := crypto.NewEngine(crypto.Options{
		Transform:       a.transform,
		Workers:         a.cfg.Decrypt.Workers,
		StrictSignature: a.cfg.Decrypt.StrictSignature,
	})
	if err != nil {
		return err
	}

	start := time.Now()
	run := audit.Run{Input: input, Output: output, Transform: a.transformName}
	var result *crypto.Result
	defer func() {
		run.Duration = time.Since(start)
		run.Err = err
		a.recordDecrypt(run, result)
	}()

	data, err := a.store.Load(ctx, input)
	if err != nil {
		return err
	}
	run.InputSize = len(data)
	fmt.Fprintf(a.out, "Loaded %d bytes from %s\n", len(data), input)

	result, err = engine.Decrypt(ctx, data)
	printHeader(a.out, result)
	printWarnings(a.out, result)
	if err != nil {
		return fmt.Errorf("decryption failed: %w", err)
	}

	if err = a.store.Save(ctx, output, result.Output); err != nil {
		return err
	}
	run.OutputSize = len(result.Output)
	fmt.Fprintf(a.out, "Decrypted %d bytes -> saved to %s\n", len(result.Output), output)
	printOutputCheck(a.out, result.OutputCheck)

	a.logger.WithFields(logrus.Fields{
		"transform": a.transformName,
		"chunks":    result.Chunks,
		"duration":  result.Duration,
	}).Debug("Decryption finished")

	return nil
}
