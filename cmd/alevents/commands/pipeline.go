package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"alertlogic-events/internal/events"
	"alertlogic-events/lib/gzrecover"
)

func newRecoverer() *gzrecover.Recoverer {
	partial, err := gzrecover.InflaterFromName(cfg.PartialInflater)
	if err != nil {
		fatal("invalid partial_inflater", err)
	}
	return gzrecover.NewRecoverer(gzrecover.Options{
		TempDir: cfg.TempDir,
		Partial: partial,
	}, tel)
}

func newAssembler(fetcher events.PageFetcher, lookup events.SignatureLookup, markers events.Markers) *events.Assembler {
	return events.NewAssembler(events.AssemblerOptions{
		Fetcher:   fetcher,
		Lookup:    lookup,
		Recoverer: newRecoverer(),
		Markers:   markers,
	}, tel)
}

// printValue writes v as indented json or through its String method.
func printValue(v fmt.Stringer, asJson bool) {
	if !asJson {
		fmt.Println(v.String())
		return
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(v)
	if err != nil {
		fatal("failed to encode output", err)
	}
}
