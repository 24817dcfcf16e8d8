// Package api exposes a small HTTP control surface for a running batch:
// status and progress, pause, resume, cancel, re-queueing failed items and
// skipping pending ones. It translates HTTP concerns into calls on a
// Controller and never touches the queue state directly.
package api
