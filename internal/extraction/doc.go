// Package extraction defines the boundary between the ingestion pipeline and
// the external LLM service that reads vehicle registration documents. The
// Extractor interface lets the pipeline run without knowing which service
// backs it.
package extraction
