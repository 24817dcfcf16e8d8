// Package ingest connects the batch scheduler to vehicle registration
// documents on disk. It discovers documents under a directory, turns them
// into work items, extracts each one through an extraction.Extractor and
// writes the settled results as JSON lines.
package ingest
