package gzrecover

import (
	"fmt"
)

// Kind tags which outcome a recovery attempt produced.
type Kind int

const (
	NoSignatureFound Kind = iota
	InsufficientHeaderBytes
	DecodeFailed
	FullyDecompressed
	PartiallyRecovered
)

const NotePartialData = "partial/incomplete data"

var kindNames = map[Kind]string{
	NoSignatureFound:        "no_signature_found",
	InsufficientHeaderBytes: "insufficient_header_bytes",
	DecodeFailed:            "decode_failed",
	FullyDecompressed:       "fully_decompressed",
	PartiallyRecovered:      "partially_recovered",
}

func (k Kind) String() string {
	name, ok := kindNames[k]
	if !ok {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return name
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown outcome kind %q", text)
}

// Outcome is the result of one recovery attempt. Text is only set for
// FullyDecompressed and PartiallyRecovered, Note for DecodeFailed and
// PartiallyRecovered.
type Outcome struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text,omitempty"`
	Note string `json:"note,omitempty"`
}

func noSignature() Outcome {
	return Outcome{Kind: NoSignatureFound}
}

func insufficientHeader() Outcome {
	return Outcome{Kind: InsufficientHeaderBytes}
}

func decodeFailed(reason string) Outcome {
	return Outcome{Kind: DecodeFailed, Note: reason}
}

func fullyDecompressed(text string) Outcome {
	return Outcome{Kind: FullyDecompressed, Text: text}
}

func partiallyRecovered(text string) Outcome {
	return Outcome{Kind: PartiallyRecovered, Text: text, Note: NotePartialData}
}

// Recovered reports whether the outcome carries decompressed text.
func (o Outcome) Recovered() bool {
	return o.Kind == FullyDecompressed || o.Kind == PartiallyRecovered
}

func (o Outcome) String() string {
	switch o.Kind {
	case NoSignatureFound:
		return "no compressed data detected"
	case InsufficientHeaderBytes:
		return "[!] unable to decompress, too much missing data"
	case DecodeFailed:
		return fmt.Sprintf("[!] compressed data detected but could not be decompressed: %s", o.Note)
	case FullyDecompressed:
		return fmt.Sprintf("[*] decompressed data detected\n%s", o.Text)
	case PartiallyRecovered:
		return fmt.Sprintf("[*] decompressed data detected\n[!] %s, adding partial contents\n%s", o.Note, o.Text)
	}
	return o.Kind.String()
}
