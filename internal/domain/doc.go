// Package domain contains the core business entities of the ingestion
// pipeline: the documents that are queued for extraction and the
// registration data extracted from them. It is independent of the batch
// engine and of any specific infrastructure.
package domain
