package gzrecover

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"alertlogic-events/internal/chrono"
	"alertlogic-events/internal/telemetry"
	"alertlogic-events/lib/hexdump"
	"alertlogic-events/lib/textutil"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const responseHeaders = "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Encoding: gzip\r\n\r\n"

func plaintext() string {
	var out strings.Builder
	out.WriteString("<html><body>\n")
	for i := 0; i < 400; i++ {
		out.WriteString(fmt.Sprintf("<p>row %d: checksum=%d</p>\n", i, (i*7919)%1009))
	}
	out.WriteString("</body></html>\n")
	return out.String()
}

func compress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newTestRecoverer(t *testing.T, partial Inflater) (*Recoverer, string) {
	t.Helper()
	dir := t.TempDir()
	clock := chrono.NewSteppedTime(time.Date(2024, time.August, 26, 0, 0, 0, 0, time.UTC), time.Millisecond)
	r := NewRecoverer(Options{
		TempDir: dir,
		Time:    clock,
		Partial: partial,
	}, telemetry.NewMemoryAPI())
	return r, dir
}

func requireNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestRecoverInsufficientHeader(t *testing.T) {
	r, dir := newTestRecoverer(t, nil)

	cases := []string{
		"",
		"1f8b08",
		"1f8b0800000000000000",
		"zz",
		"0d0a0d0a1f8b08",
		// signature found, but only 10 bytes follow it
		"00000000000000000000000000001f8b0800000000000000",
	}
	for _, hex := range cases {
		out := r.Recover(context.Background(), "evt", hex)
		require.Equal(t, InsufficientHeaderBytes, out.Kind, hex)
		require.Empty(t, out.Text)
	}
	requireNoTempFiles(t, dir)
}

func TestRecoverNoSignature(t *testing.T) {
	r, dir := newTestRecoverer(t, nil)

	cases := []string{
		strings.Repeat("00", 50),
		hexdump.EncodeHex([]byte("GET /admin HTTP/1.1\r\nHost: example.com\r\n\r\n")),
		// the signature straddles a byte boundary
		"a1f8b08" + strings.Repeat("00", 20) + "0",
	}
	for _, hex := range cases {
		out := r.Recover(context.Background(), "evt", hex)
		require.Equal(t, NoSignatureFound, out.Kind, hex)
	}
	requireNoTempFiles(t, dir)
}

func TestRecoverFullyDecompressed(t *testing.T) {
	r, dir := newTestRecoverer(t, nil)

	original := []byte("\x00\x01binary preamble\r\n" + plaintext() + "\xff\xfe")
	capture := append([]byte(responseHeaders), compress(t, original)...)

	out := r.Recover(context.Background(), "1234", hexdump.EncodeHex(capture))
	require.Equal(t, FullyDecompressed, out.Kind)
	require.Equal(t, textutil.Printable(original), out.Text)
	require.Empty(t, out.Note)
	require.True(t, out.Recovered())
	requireNoTempFiles(t, dir)
}

func TestRecoverUppercaseHex(t *testing.T) {
	r, dir := newTestRecoverer(t, nil)

	original := []byte(plaintext())
	capture := append([]byte(responseHeaders), compress(t, original)...)

	out := r.Recover(context.Background(), "1234", strings.ToUpper(hexdump.EncodeHex(capture)))
	require.Equal(t, FullyDecompressed, out.Kind)
	require.Equal(t, string(original), out.Text)
	requireNoTempFiles(t, dir)
}

func TestRecoverIgnoresTrailingPacketBytes(t *testing.T) {
	r, dir := newTestRecoverer(t, nil)

	original := []byte(plaintext())
	capture := append([]byte(responseHeaders), compress(t, original)...)
	capture = append(capture, []byte("\r\n\r\nGET /next HTTP/1.1\r\n")...)

	out := r.Recover(context.Background(), "1234", hexdump.EncodeHex(capture))
	require.Equal(t, FullyDecompressed, out.Kind)
	require.Equal(t, string(original), out.Text)
	requireNoTempFiles(t, dir)
}

func TestRecoverPartiallyRecovered(t *testing.T) {
	r, dir := newTestRecoverer(t, nil)

	original := plaintext()
	compressed := compress(t, []byte(original))
	truncated := compressed[:len(compressed)/2]
	capture := append([]byte(responseHeaders), truncated...)

	out := r.Recover(context.Background(), "1234", hexdump.EncodeHex(capture))
	require.Equal(t, PartiallyRecovered, out.Kind)
	require.Equal(t, NotePartialData, out.Note)
	require.NotEmpty(t, out.Text)
	require.True(t, strings.HasPrefix(original, out.Text))
	require.Less(t, len(out.Text), len(original))
	requireNoTempFiles(t, dir)
}

func TestRecoverDecodeFailed(t *testing.T) {
	r, dir := newTestRecoverer(t, nil)

	cases := []string{
		// odd length candidate
		"0d0a0d0a1f8b08" + strings.Repeat("00", 10) + "0",
		// non hex candidate
		"1f8b08" + strings.Repeat("zz", 10),
		// valid header, nothing recoverable after it
		"1f8b08" + strings.Repeat("00", 8),
	}
	for _, hex := range cases {
		out := r.Recover(context.Background(), "evt", hex)
		require.Equal(t, DecodeFailed, out.Kind, hex)
		require.NotEmpty(t, out.Note, hex)
		require.Empty(t, out.Text, hex)
	}
	requireNoTempFiles(t, dir)
}

type spyInflater struct {
	seen []string
	err  error
}

func (s *spyInflater) Name() string {
	return "spy"
}

func (s *spyInflater) Inflate(ctx context.Context, path string) ([]byte, error) {
	_, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	s.seen = append(s.seen, path)
	if s.err != nil {
		return nil, s.err
	}
	return []byte("spied\x00"), nil
}

func TestRecoverTempFileLifetime(t *testing.T) {
	spy := &spyInflater{}
	r, dir := newTestRecoverer(t, spy)

	compressed := compress(t, []byte(plaintext()))
	truncated := hexdump.EncodeHex(compressed[:len(compressed)/3])

	out := r.Recover(context.Background(), "42/../x", truncated)
	require.Equal(t, PartiallyRecovered, out.Kind)
	require.Equal(t, "spied", out.Text)

	require.Len(t, spy.seen, 1)
	require.Equal(t, dir, filepath.Dir(spy.seen[0]))
	require.True(t, strings.HasPrefix(filepath.Base(spy.seen[0]), "42___x_"))
	require.True(t, strings.HasSuffix(spy.seen[0], ".tmp"))
	requireNoTempFiles(t, dir)

	spy.err = errors.New("tool crashed")
	out = r.Recover(context.Background(), "43", truncated)
	require.Equal(t, DecodeFailed, out.Kind)
	require.Contains(t, out.Note, "tool crashed")
	requireNoTempFiles(t, dir)
}

func TestRecoverConcurrentEvents(t *testing.T) {
	r, dir := newTestRecoverer(t, nil)

	original := []byte(plaintext())
	hex := hexdump.EncodeHex(append([]byte(responseHeaders), compress(t, original)...))

	var wg sync.WaitGroup
	results := make([]Outcome, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Recover(context.Background(), fmt.Sprintf("event-%d", i), hex)
		}(i)
	}
	wg.Wait()

	for _, out := range results {
		require.Equal(t, FullyDecompressed, out.Kind)
		require.Equal(t, string(original), out.Text)
	}
	requireNoTempFiles(t, dir)
}

func TestLocate(t *testing.T) {
	bare := "1f8b08" + strings.Repeat("aa", 12)
	framed := "0d0a0d0a1f8b08" + strings.Repeat("bb", 12)

	cases := []struct {
		hex    string
		expect string
		found  bool
	}{
		{hex: "0000" + bare, expect: bare, found: true},
		{hex: "00" + framed, expect: framed[8:], found: true},
		// a framed stream wins over an earlier bare signature
		{hex: bare + framed, expect: framed[8:], found: true},
		{hex: "0" + bare, found: false},
		{hex: "0" + framed[:8] + "0" + bare, expect: bare, found: true},
		{hex: strings.Repeat("00", 30), found: false},
	}
	for _, test := range cases {
		candidate, found := Locate(test.hex)
		require.Equal(t, test.found, found, test.hex)
		require.Equal(t, test.expect, candidate, test.hex)
	}
}

func TestNativeInflaterOnGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.tmp")
	require.NoError(t, os.WriteFile(path, []byte("not gzip at all"), 0600))

	out, err := NativeInflater{}.Inflate(context.Background(), path)
	require.Error(t, err)
	require.Nil(t, out)
}

func TestSubprocessInflaterUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.tmp")
	require.NoError(t, os.WriteFile(path, compress(t, []byte("hello")), 0600))

	_, err := SubprocessInflater{Command: "alevents-no-such-decompressor"}.Inflate(context.Background(), path)
	require.ErrorIs(t, err, ErrInflaterUnavailable)
}

func TestSubprocessInflater(t *testing.T) {
	if _, err := exec.LookPath("zcat"); err != nil {
		t.Skip("zcat is not installed")
	}
	path := filepath.Join(t.TempDir(), "x.tmp")
	require.NoError(t, os.WriteFile(path, compress(t, []byte("hello from zcat")), 0600))

	out, err := SubprocessInflater{}.Inflate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "hello from zcat", string(out))
}

func TestChainFallsThrough(t *testing.T) {
	compressed := compress(t, []byte(plaintext()))
	path := filepath.Join(t.TempDir(), "x.tmp")
	require.NoError(t, os.WriteFile(path, compressed[:len(compressed)/2], 0600))

	chain := Chain{SubprocessInflater{Command: "alevents-no-such-decompressor"}, NativeInflater{}}
	out, err := chain.Inflate(context.Background(), path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(plaintext(), string(out)))
	require.Equal(t, "alevents-no-such-decompressor,native", chain.Name())

	_, err = Chain{}.Inflate(context.Background(), path)
	require.ErrorIs(t, err, ErrInflaterUnavailable)
}

func TestInflaterFromName(t *testing.T) {
	for _, name := range []string{"", "auto", "native", "zcat", " Native "} {
		inflater, err := InflaterFromName(name)
		require.NoError(t, err, name)
		require.NotNil(t, inflater, name)
	}
	_, err := InflaterFromName("bzip2")
	require.Error(t, err)
}

func TestKindText(t *testing.T) {
	for kind := NoSignatureFound; kind <= PartiallyRecovered; kind++ {
		text, err := kind.MarshalText()
		require.NoError(t, err)

		var parsed Kind
		require.NoError(t, parsed.UnmarshalText(text))
		require.Equal(t, kind, parsed)
	}
	var parsed Kind
	require.Error(t, parsed.UnmarshalText([]byte("exploded")))
}
