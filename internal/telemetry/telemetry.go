package telemetry

import (
	"fmt"
)

// API is what components report through instead of logging directly, so
// tests can swap in MemoryAPI and assert on what was reported.
type API interface {
	// ReportBroken reports a failure that needs a fix or an operator.
	//
	// The id names the component that broke, like `client.login`, not the
	// step inside it. Ids are lowercase, underscores join words of a
	// component and a dash separates a component from its method. Details
	// such as the underlying error go in params.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that did not stop the
	// component. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug is only visible with verbose logging.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the running total of an event. Values are samples
	// over time and must not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
