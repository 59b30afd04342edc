package crypto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kenneth/metadata-decryptor/internal/container"
)

// ErrSignatureMismatch is returned in strict mode when the marker is missing.
var ErrSignatureMismatch = errors.New("signature marker not found")

// State is a stage of the decryption pipeline.
type State string

const (
	StateParsed           State = "Parsed"
	StateDecrypting       State = "Decrypting"
	StateSignatureChecked State = "SignatureChecked"
	StateDone             State = "Done"
	StateFailed           State = "Failed"
)

// Options configures an Engine.
type Options struct {
	// Transform is the block transform applied to every payload block. Required.
	Transform BlockTransform
	// Workers is the number of goroutines used for blocks; <= 1 means sequential.
	Workers int
	// StrictSignature turns a missing signature marker into a failure.
	StrictSignature bool
	// Tracer overrides the tracer taken from the global provider.
	Tracer trace.Tracer
}

// Result describes one pipeline run.
type Result struct {
	State State

	TotalSize     int
	EncryptedSize int
	HeaderSize    int
	DataOffset    int
	Chunks        int

	// Output is the decrypted metadata, owned by the caller.
	Output      []byte
	Warnings    []Warning
	OutputCheck OutputCheck
	Duration    time.Duration
}

// Engine runs the container decryption pipeline. It is safe for concurrent
// use; each call owns its own working buffer.
type Engine struct {
	decryptor       *ChunkDecryptor
	strictSignature bool
	tracer          trace.Tracer
}

// NewEngine creates a decryption engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Transform == nil {
		return nil, fmt.Errorf("block transform is required")
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("metadata-decryptor")
	}

	return &Engine{
		decryptor:       NewChunkDecryptor(opts.Transform, opts.Workers),
		strictSignature: opts.StrictSignature,
		tracer:          tracer,
	}, nil
}

// Decrypt parses data as a container and returns the decrypted metadata.
// data is never modified. On a header error the returned Result is in
// StateFailed and carries only the sizes known at that point.
func (e *Engine) Decrypt(ctx context.Context, data []byte) (*Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "crypto.Decrypt",
		trace.WithAttributes(attribute.Int("container.total_size", len(data))),
	)
	defer span.End()

	result := &Result{TotalSize: len(data)}
	defer func() {
		result.Duration = time.Since(start)
	}()

	c, err := e.parse(ctx, data)
	if err != nil {
		result.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	result.State = StateParsed
	result.EncryptedSize = int(c.EncryptedSize)
	result.HeaderSize = c.HeaderSize
	result.DataOffset = c.DataOffset()
	span.SetAttributes(
		attribute.Int("container.encrypted_size", result.EncryptedSize),
		attribute.Int("container.header_size", result.HeaderSize),
	)

	result.State = StateDecrypting
	working := c.WorkingCopy()
	result.Chunks = e.decryptChunks(ctx, c, working)

	out, warning := CheckSignature(working)
	result.State = StateSignatureChecked
	if warning != nil {
		result.Warnings = append(result.Warnings, *warning)
		span.AddEvent("signature mismatch", trace.WithAttributes(
			attribute.String("signature.found", FormatBytes(warning.Found)),
		))
		if e.strictSignature {
			result.State = StateFailed
			err := fmt.Errorf("%w: found %s", ErrSignatureMismatch, FormatBytes(warning.Found))
			span.SetStatus(codes.Error, err.Error())
			return result, err
		}
	}

	result.Output = out
	result.OutputCheck = CheckOutput(out)
	result.State = StateDone
	span.SetAttributes(
		attribute.Int("output.size", len(out)),
		attribute.Bool("output.magic_match", result.OutputCheck.Match),
	)
	span.SetStatus(codes.Ok, "")

	return result, nil
}

func (e *Engine) parse(ctx context.Context, data []byte) (*container.Container, error) {
	_, span := e.tracer.Start(ctx, "container.Parse")
	defer span.End()

	c, err := container.Parse(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return c, nil
}

func (e *Engine) decryptChunks(ctx context.Context, c *container.Container, working []byte) int {
	_, span := e.tracer.Start(ctx, "crypto.DecryptChunks",
		trace.WithAttributes(attribute.Int("chunk.workers", e.decryptor.workers)),
	)
	defer span.End()

	n := e.decryptor.Apply(c.BytecodeRegion(), c.KeyRegion(), working)
	span.SetAttributes(attribute.Int("chunk.count", n))
	return n
}

// Pack builds a container holding plaintext, the inverse of Decrypt for the
// engine's transform. The transform must be an involution, as all built-in
// transforms are. key and bytecode are laid out as by container.Build.
func (e *Engine) Pack(ctx context.Context, plaintext, key, bytecode []byte) ([]byte, error) {
	_, span := e.tracer.Start(ctx, "crypto.Pack")
	defer span.End()

	payload := make([]byte, 0, len(SignatureMarker)+len(plaintext))
	payload = append(payload, SignatureMarker...)
	payload = append(payload, plaintext...)

	image, err := container.Build(container.Layout{Key: key, Bytecode: bytecode, Payload: payload})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to build container: %w", err)
	}

	c, err := container.Parse(image)
	if err != nil {
		return nil, fmt.Errorf("failed to parse built container: %w", err)
	}
	// The payload region does not overlap the key or bytecode regions.
	e.decryptor.Apply(c.BytecodeRegion(), c.KeyRegion(), c.Payload())

	return image, nil
}
