// Package kafka publishes the pipeline's domain events.
package kafka

// Topic names.  Downstream consumers (renderers, search indexers, analytics)
// subscribe to these; the pipeline only produces.
const (
	// TopicEvidenceChanged carries one message per evidence mutation,
	// including the recomputed comparable selection.
	TopicEvidenceChanged = "valuation.evidence.changed"

	// TopicReportCompiled carries one message per completed compilation.
	TopicReportCompiled = "valuation.report.compiled"
)
