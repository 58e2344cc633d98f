// Package events assembles a console event: its metadata, its signature and
// the payload reconstructed from the hex dump on the event page.
package events

import (
	"fmt"
	"strings"

	"alertlogic-events/lib/gzrecover"
	"alertlogic-events/lib/httpfields"
)

const NoneParsed = httpfields.NoneParsed

// EventRef identifies an event on the console.
type EventRef struct {
	ID         string
	CustomerID string
}

type Metadata struct {
	SourceAddr     string `json:"source_addr"`
	DestAddr       string `json:"dest_addr"`
	SourcePort     string `json:"source_port"`
	DestPort       string `json:"dest_port"`
	SignatureName  string `json:"signature_name"`
	Sensor         string `json:"sensor"`
	Protocol       string `json:"protocol"`
	Classification string `json:"classification"`
	Severity       string `json:"severity"`
	EngineTime     string `json:"event_time"`
}

type Signature struct {
	ID   string `json:"sig_id"`
	Rule string `json:"sig_rule"`
}

type Payload struct {
	FullPayload  string            `json:"full_payload"`
	RawHex       string            `json:"raw_hex"`
	Decompressed gzrecover.Outcome `json:"decompressed"`
	Packet       httpfields.Record `json:"packet_details"`
}

type Event struct {
	ID         string     `json:"event_id"`
	CustomerID string     `json:"customer_id"`
	URL        string     `json:"event_url"`
	Details    Metadata   `json:"event_details"`
	Signature  *Signature `json:"signature_details"`
	Payload    Payload    `json:"event_payload"`
}

func (m Metadata) String() string {
	var out strings.Builder
	for _, field := range []struct {
		name  string
		value string
	}{
		{"Source Address", m.SourceAddr},
		{"Destination Address", m.DestAddr},
		{"Source Port", m.SourcePort},
		{"Destination Port", m.DestPort},
		{"Signature Name", m.SignatureName},
		{"Sensor", m.Sensor},
		{"Protocol", m.Protocol},
		{"Classification", m.Classification},
		{"Severity", m.Severity},
		{"Engine Time", m.EngineTime},
	} {
		fmt.Fprintf(&out, "%s: %s\n", field.name, field.value)
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func (s *Signature) String() string {
	if s == nil {
		return "no signature"
	}
	return fmt.Sprintf("Signature ID: %s\nRule: %s", s.ID, s.Rule)
}

func (p Payload) String() string {
	out := fmt.Sprintf("Packet Details: \n%s\nFull Payload: \n%s", p.Packet, p.FullPayload)
	if p.Decompressed.Kind != gzrecover.NoSignatureFound {
		out += fmt.Sprintf("\nDecompressed Data: \n%s", p.Decompressed)
	}
	return out
}

func (e Event) String() string {
	return fmt.Sprintf(
		"Event ID: %s\nEvent Link: \n%s\nEvent Details: \n%s\nSignature Details: \n%s\nEvent Payload: \n%s",
		e.ID, e.URL, e.Details, e.Signature, e.Payload,
	)
}
