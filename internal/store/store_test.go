package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"alertlogic-events/internal/chrono"
	"alertlogic-events/internal/events"
	"alertlogic-events/lib/gzrecover"
	"alertlogic-events/lib/httpfields"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testEvent(id, severity string, kind gzrecover.Kind) events.Event {
	return events.Event{
		ID:         id,
		CustomerID: "56",
		URL:        "https://console.example/event.php?id=" + id,
		Details: events.Metadata{
			SourceAddr:     "203.0.113.7",
			DestAddr:       "10.0.0.12",
			SourcePort:     "51234",
			DestPort:       "80",
			SignatureName:  "WEB-MISC admin access",
			Sensor:         "sensor-east-1",
			Protocol:       "TCP",
			Classification: "web-application-attack",
			Severity:       severity,
			EngineTime:     events.NoneParsed,
		},
		Signature: &events.Signature{ID: "2001", Rule: "alert tcp any any -> any 80"},
		Payload: events.Payload{
			FullPayload:  "GET /admin HTTP/1.1\r\n",
			RawHex:       "474554202f61646d696e20485454502f312e310d0a",
			Decompressed: gzrecover.Outcome{Kind: kind},
			Packet:       httpfields.Extract("GET /admin HTTP/1.1\r\n"),
		},
	}
}

func TestStore(t *testing.T) {
	db, err := Open(Config{File: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := New(db).WithTime(chrono.NewSteppedTime(start, time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	require.NoError(t, store.Migrate(ctx))
	// migrating twice is harmless
	require.NoError(t, store.Migrate(ctx))

	{
		summaries, err := store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, summaries, 0)

		_, err = store.Get(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	}

	first := testEvent("1234", "3", gzrecover.NoSignatureFound)
	second := testEvent("1235", "1", gzrecover.FullyDecompressed)
	second.Signature = nil
	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))

	{
		record, err := store.Get(ctx, "1234")
		require.NoError(t, err)
		require.Equal(t, start, record.FetchedAt)
		if diff := cmp.Diff(first, record.Event); diff != "" {
			t.Fatal(diff)
		}

		record, err = store.Get(ctx, "1235")
		require.NoError(t, err)
		require.Nil(t, record.Event.Signature)
	}

	{
		summaries, err := store.List(ctx, 10)
		require.NoError(t, err)
		require.Equal(t, []Summary{
			{
				ID:            "1235",
				CustomerID:    "56",
				SignatureName: "WEB-MISC admin access",
				Severity:      "1",
				Outcome:       "fully_decompressed",
				FetchedAt:     start.Add(time.Minute),
			},
			{
				ID:            "1234",
				CustomerID:    "56",
				SignatureName: "WEB-MISC admin access",
				Severity:      "3",
				Outcome:       "no_signature_found",
				FetchedAt:     start,
			},
		}, summaries)

		summaries, err = store.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, summaries, 1)
	}

	{
		// putting an event again replaces it and bumps it to the top
		first.Details.Severity = "2"
		require.NoError(t, store.Put(ctx, first))

		summaries, err := store.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		require.Equal(t, "1234", summaries[0].ID)
		require.Equal(t, "2", summaries[0].Severity)
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.db")
	db, err := Open(Config{File: path})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, New(db).Migrate(context.Background()))
	require.FileExists(t, path)
}

func TestOpenNothing(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}
