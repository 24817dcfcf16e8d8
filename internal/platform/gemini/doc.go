// Package gemini provides an implementation of the extraction.Extractor
// interface backed by Google's Gemini API.
//
// The document bytes are sent inline next to a fixed instruction prompt and
// the model is asked for a JSON object. The response is parsed into a
// domain.Registration and API failures are translated into the extraction
// package errors, so the batch scheduler can tell transient failures from
// permanent ones. The adapter never retries on its own.
package gemini
