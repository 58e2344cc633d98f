// Package gzrecover finds a gzip stream inside a reconstructed packet
// capture and decompresses as much of it as it can. Captured traffic is
// usually cut off mid-stream, so recovering a prefix is the common case.
package gzrecover

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"alertlogic-events/internal/chrono"
	"alertlogic-events/internal/telemetry"
	"alertlogic-events/lib/hexdump"
	"alertlogic-events/lib/textutil"

	"github.com/klauspost/compress/gzip"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("alertlogic-events/lib/gzrecover")

const (
	report_recoverer_recover = "recoverer.recover"
	report_recoverer_cleanup = "recoverer.cleanup"
)

const (
	// packet boundary (CR LF CR LF) followed by the gzip magic and the
	// deflate method byte
	boundarySignature = "0d0a0d0a1f8b08"
	gzipSignature     = "1f8b08"
	// a gzip header is at least 10 bytes (RFC 1952)
	minHeaderHex = 20
)

type Options struct {
	// TempDir defaults to os.TempDir().
	TempDir string
	// Time defaults to chrono.StandardTime.
	Time chrono.TimeAPI
	// Partial defaults to NativeInflater.
	Partial Inflater
}

// Recoverer is safe to use from multiple goroutines as long as each call
// uses a distinct event id.
type Recoverer struct {
	tempDir string
	time    chrono.TimeAPI
	partial Inflater
	tel     telemetry.API
	counts  [PartiallyRecovered + 1]atomic.Int64
}

func NewRecoverer(opts Options, tel telemetry.API) *Recoverer {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Time == nil {
		opts.Time = chrono.NewStandardTime()
	}
	if opts.Partial == nil {
		opts.Partial = NativeInflater{}
	}
	return &Recoverer{
		tempDir: opts.TempDir,
		time:    opts.Time,
		partial: opts.Partial,
		tel:     telemetry.NewScopedAPI("gzrecover", tel),
	}
}

// alignedIndex is strings.Index restricted to even offsets, so a match never
// straddles two bytes.
func alignedIndex(s, sub string) int {
	offset := 0
	for offset < len(s) {
		i := strings.Index(s[offset:], sub)
		if i < 0 {
			return -1
		}
		i += offset
		if i%2 == 0 {
			return i
		}
		offset = i + 1
	}
	return -1
}

// Locate returns the candidate gzip stream inside hexStr. A stream that
// follows a packet boundary is preferred over a bare signature.
func Locate(hexStr string) (string, bool) {
	lowered := strings.ToLower(hexStr)
	if i := alignedIndex(lowered, boundarySignature); i >= 0 {
		return hexStr[i+len("0d0a0d0a"):], true
	}
	if i := alignedIndex(lowered, gzipSignature); i >= 0 {
		return hexStr[i:], true
	}
	return "", false
}

// Recover looks for a gzip stream in the hex representation of a capture
// and decompresses it. Every condition is reported through the returned
// Outcome, the temporary file it creates is removed before returning.
func (r *Recoverer) Recover(ctx context.Context, eventID, hexStr string) Outcome {
	ctx, span := tracer.Start(ctx, "Recover")
	defer span.End()

	out := r.recover(ctx, eventID, hexStr)

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("outcome", out.Kind.String()),
	)
	r.tel.ReportDebug(report_recoverer_recover, eventID, out.Kind.String())
	count := r.counts[out.Kind].Add(1)
	r.tel.ReportCount(out.Kind.String(), count)
	return out
}

func (r *Recoverer) recover(ctx context.Context, eventID, hexStr string) Outcome {
	if len(hexStr) <= minHeaderHex {
		return insufficientHeader()
	}
	candidate, ok := Locate(hexStr)
	if !ok {
		return noSignature()
	}
	if len(candidate) <= minHeaderHex {
		return insufficientHeader()
	}

	raw, err := hexdump.DecodeHex(candidate)
	if err != nil {
		return decodeFailed(fmt.Sprintf("convert candidate stream: %s", err.Error()))
	}

	path, err := r.writeTemp(eventID, raw)
	if err != nil {
		r.tel.ReportBroken(report_recoverer_recover, fmt.Errorf("write temporary file: %w", err), eventID)
		return decodeFailed(fmt.Sprintf("write temporary file: %s", err.Error()))
	}
	defer r.removeTemp(path)

	full, fullErr := inflateFull(path)
	if fullErr == nil {
		return fullyDecompressed(textutil.Printable(full))
	}

	partial, err := r.partial.Inflate(ctx, path)
	if err != nil {
		return decodeFailed(fmt.Sprintf("%s; %s: %s", fullErr.Error(), r.partial.Name(), err.Error()))
	}
	return partiallyRecovered(textutil.Printable(partial))
}

var unsafePathChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

// TempPath returns the temporary file name used for an attempt on eventID at
// the given unix nanosecond timestamp.
func (r *Recoverer) TempPath(eventID string, timestamp int64) string {
	name := unsafePathChars.Replace(eventID)
	if name == "" {
		name = "event"
	}
	return filepath.Join(r.tempDir, fmt.Sprintf("%s_%d.tmp", name, timestamp))
}

func (r *Recoverer) writeTemp(eventID string, raw []byte) (string, error) {
	path := r.TempPath(eventID, r.time.Now().UnixNano())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}
	_, err = f.Write(raw)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		r.removeTemp(path)
		return "", err
	}
	return path, nil
}

func (r *Recoverer) removeTemp(path string) {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		r.tel.ReportBroken(report_recoverer_cleanup, err, path)
	}
}

// inflateFull decompresses the first gzip member in the file. Bytes after
// the member belong to the next captured packet and are ignored.
func inflateFull(path string) ([]byte, error) {
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

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}
