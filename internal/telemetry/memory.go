package telemetry

import (
	"sync"
)

type ReportKind int

const (
	KindBroken ReportKind = iota
	KindWarning
	KindDebug
	KindCount
)

type Report struct {
	Kind   ReportKind
	Id     string
	Params []any
	Count  int64
}

// MemoryAPI keeps every report in memory so tests can assert on them.
type MemoryAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{}
}

func (m *MemoryAPI) push(r Report) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reports = append(m.reports, r)
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.push(Report{Kind: KindBroken, Id: id, Params: params})
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.push(Report{Kind: KindWarning, Id: id, Params: params})
}

func (m *MemoryAPI) ReportDebug(msg string, params ...any) {
	m.push(Report{Kind: KindDebug, Id: msg, Params: params})
}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.push(Report{Kind: KindCount, Id: id, Count: count})
}

// Reports returns a copy of every report of the given kind.
func (m *MemoryAPI) Reports(kind ReportKind) []Report {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var out []Report
	for _, r := range m.reports {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Ids returns the ids of every report of the given kind in order.
func (m *MemoryAPI) Ids(kind ReportKind) []string {
	var out []string
	for _, r := range m.Reports(kind) {
		out = append(out, r.Id)
	}
	return out
}
