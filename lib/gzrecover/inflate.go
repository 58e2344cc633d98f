package gzrecover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrInflaterUnavailable is returned by an Inflater that cannot run on this
// platform, like a subprocess inflater whose binary is not installed.
var ErrInflaterUnavailable = errors.New("inflater unavailable")

var errNoOutput = errors.New("no data recovered")

// Inflater decompresses as much of a damaged gzip file as possible.
type Inflater interface {
	Name() string
	// Inflate returns the recovered prefix of the gzip file at path. A nil
	// error means at least one byte was recovered.
	Inflate(ctx context.Context, path string) ([]byte, error)
}

// NativeInflater streams the file through a gzip reader and keeps every
// byte emitted before the first error.
type NativeInflater struct{}

func (NativeInflater) Name() string {
	return "native"
}

func (NativeInflater) Inflate(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read gzip header: %w", err)
	}
	defer zr.Close()
	zr.Multistream(false)

	var out bytes.Buffer
	buf := make([]byte, 32*1024)
	for {
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		n, readErr := zr.Read(buf)
		out.Write(buf[:n])
		if readErr != nil {
			err = readErr
			break
		}
	}
	if out.Len() == 0 {
		if err == nil || err == io.EOF {
			err = errNoOutput
		}
		return nil, err
	}
	return out.Bytes(), nil
}

// SubprocessInflater pipes the file through an external streaming
// decompressor (zcat by default) and keeps whatever it wrote to stdout, even
// when the tool exits with an error because the stream is truncated.
type SubprocessInflater struct {
	Command string
	Args    []string
}

func (s SubprocessInflater) command() string {
	if s.Command == "" {
		return "zcat"
	}
	return s.Command
}

func (s SubprocessInflater) Name() string {
	return s.command()
}

func (s SubprocessInflater) Inflate(ctx context.Context, path string) ([]byte, error) {
	bin, err := exec.LookPath(s.command())
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", s.command(), ErrInflaterUnavailable, err)
	}

	args := append(append([]string{}, s.Args...), path)
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if stdout.Len() > 0 {
		return stdout.Bytes(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", s.command(), err, strings.TrimSpace(stderr.String()))
	}
	return nil, fmt.Errorf("%s: %w", s.command(), errNoOutput)
}

// Chain tries each inflater in order, the first one that recovers data wins.
type Chain []Inflater

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, inflater := range c {
		names[i] = inflater.Name()
	}
	return strings.Join(names, ",")
}

func (c Chain) Inflate(ctx context.Context, path string) ([]byte, error) {
	var errlist []error
	for _, inflater := range c {
		out, err := inflater.Inflate(ctx, path)
		if err == nil {
			return out, nil
		}
		errlist = append(errlist, err)
	}
	if len(errlist) == 0 {
		return nil, ErrInflaterUnavailable
	}
	return nil, errors.Join(errlist...)
}

// InflaterFromName resolves the `partial_inflater` config value, an empty
// name means "auto".
func InflaterFromName(name string) (Inflater, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "native":
		return NativeInflater{}, nil
	case "zcat":
		return SubprocessInflater{Command: "zcat"}, nil
	case "", "auto":
		return Chain{NativeInflater{}, SubprocessInflater{Command: "zcat"}}, nil
	}
	return nil, fmt.Errorf("unknown partial inflater %q", name)
}
