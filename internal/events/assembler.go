package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"alertlogic-events/internal/telemetry"
	"alertlogic-events/lib/gzrecover"
	"alertlogic-events/lib/hexdump"
	"alertlogic-events/lib/htmlutil"
	"alertlogic-events/lib/httpfields"
	"alertlogic-events/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("alertlogic-events/internal/events")
var meter = otel.Meter("alertlogic-events/internal/events")
var assembledCounter, _ = meter.Int64Counter(
	"events_assembled",
	metric.WithDescription("Events assembled, by decompression outcome."),
)

const (
	report_assembler_assemble  = "assembler.assemble"
	report_assembler_signature = "assembler.signature"
)

var ErrEventUnavailable = errors.New("event page unavailable")

// Markers bound the part of the event page that holds the hex dump.
type Markers struct {
	Start string
	End   string
}

func DefaultMarkers() Markers {
	return Markers{
		Start: "<td>Signature: ",
		End:   `<table id="cache_table" style="display: none;">`,
	}
}

type PageFetcher interface {
	FetchEventPage(ctx context.Context, eventID, customerID string) (status int, body string, err error)
}

type SignatureLookup interface {
	FetchSignaturePage(ctx context.Context, sid string) (status int, body string, err error)
}

// URLBuilder is implemented by fetchers that know the console link of an event.
type URLBuilder interface {
	EventURL(eventID, customerID string) string
}

type AssemblerOptions struct {
	Fetcher PageFetcher
	// Lookup resolves signature rules missing from the event page, it is
	// optional.
	Lookup    SignatureLookup
	Recoverer *gzrecover.Recoverer
	// Markers defaults to DefaultMarkers().
	Markers Markers
}

type Assembler struct {
	fetcher   PageFetcher
	lookup    SignatureLookup
	recoverer *gzrecover.Recoverer
	markers   Markers
	tel       telemetry.API
}

func NewAssembler(opts AssemblerOptions, tel telemetry.API) *Assembler {
	if opts.Markers == (Markers{}) {
		opts.Markers = DefaultMarkers()
	}
	if opts.Recoverer == nil {
		opts.Recoverer = gzrecover.NewRecoverer(gzrecover.Options{}, tel)
	}
	return &Assembler{
		fetcher:   opts.Fetcher,
		lookup:    opts.Lookup,
		recoverer: opts.Recoverer,
		markers:   opts.Markers,
		tel:       telemetry.NewScopedAPI("events", tel),
	}
}

// Assemble fetches the event page and assembles it.
func (a *Assembler) Assemble(ctx context.Context, ref EventRef) (Event, error) {
	ctx, span := tracer.Start(ctx, "Assemble")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", ref.ID))

	if a.fetcher == nil {
		return Event{}, fmt.Errorf("assemble %s: no page fetcher configured", ref.ID)
	}
	status, page, err := a.fetcher.FetchEventPage(ctx, ref.ID, ref.CustomerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return Event{}, fmt.Errorf("assemble %s: %w", ref.ID, err)
	}
	if status != 200 {
		span.SetStatus(codes.Error, "unexpected status")
		a.tel.ReportWarning(report_assembler_assemble, "unexpected status", ref.ID, status)
		return Event{}, fmt.Errorf("assemble %s: %w (status %d)", ref.ID, ErrEventUnavailable, status)
	}

	return a.AssemblePage(ctx, ref, page)
}

// AssemblePage runs the reconstruction pipeline over the text of an event
// page. The only error is a malformed hex dump, every other missing piece
// is reported through sentinel fields and the decompression outcome.
func (a *Assembler) AssemblePage(ctx context.Context, ref EventRef, page string) (Event, error) {
	ctx, span := tracer.Start(ctx, "AssemblePage")
	defer span.End()

	event := Event{
		ID:         ref.ID,
		CustomerID: ref.CustomerID,
	}
	if builder, ok := a.fetcher.(URLBuilder); ok {
		event.URL = builder.EventURL(ref.ID, ref.CustomerID)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		a.tel.ReportWarning(report_assembler_assemble, fmt.Errorf("parse page: %w", err), ref.ID)
		doc = nil
	}
	event.Details = parseMetadata(page, doc)
	if doc != nil {
		event.Signature = a.signature(ctx, doc)
	}

	payload, err := a.payload(ctx, ref.ID, page)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "malformed hex dump")
		a.tel.ReportBroken(report_assembler_assemble, err, ref.ID)
		return Event{}, fmt.Errorf("assemble %s: %w", ref.ID, err)
	}
	event.Payload = payload

	outcome := attribute.String("outcome", payload.Decompressed.Kind.String())
	span.SetAttributes(outcome)
	assembledCounter.Add(ctx, 1, metric.WithAttributes(outcome))
	return event, nil
}

func (a *Assembler) payload(ctx context.Context, eventID, page string) (Payload, error) {
	rawHex := hexdump.Extract(page, a.markers.Start, a.markers.End)
	if rawHex == "" {
		a.tel.ReportDebug("no capture data on page", eventID)
	}
	return a.DecodeDump(ctx, eventID, rawHex)
}

// DecodeDump reconstructs the payload from the hex groups of a dump that
// was already extracted.
func (a *Assembler) DecodeDump(ctx context.Context, eventID, rawHex string) (Payload, error) {
	raw, err := hexdump.DecodeHex(rawHex)
	if err != nil {
		return Payload{}, err
	}
	full := textutil.Printable(raw)

	return Payload{
		FullPayload:  full,
		RawHex:       rawHex,
		Packet:       httpfields.Extract(full),
		Decompressed: a.recoverer.Recover(ctx, eventID, rawHex),
	}, nil
}

func (a *Assembler) signature(ctx context.Context, doc *goquery.Document) *Signature {
	sid, ok := signatureID(doc)
	if !ok {
		return nil
	}
	sig := &Signature{ID: sid, Rule: NoneParsed}

	if raw, ok := htmlutil.LabelledCell(doc, "Signature Content:"); ok {
		sig.Rule = htmlutil.CleanRule(raw)
		return sig
	}
	if a.lookup == nil {
		return sig
	}

	status, page, err := a.lookup.FetchSignaturePage(ctx, sid)
	if err != nil {
		a.tel.ReportWarning(report_assembler_signature, fmt.Errorf("fetch signature: %w", err), sid)
		return sig
	}
	if status != 200 {
		a.tel.ReportWarning(report_assembler_signature, "unexpected status", sid, status)
		return sig
	}
	rule, ok := ParseSignatureRule(page)
	if !ok {
		a.tel.ReportWarning(report_assembler_signature, "rule not found on signature page", sid)
		return sig
	}
	sig.Rule = rule
	return sig
}
