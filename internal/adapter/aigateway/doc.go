// Package aigateway is a client for an OpenAI-compatible chat completions
// gateway that returns a sentiment analysis for a piece of feedback.
//
// Calls are bounded by a per-call timeout, retried on transient failures and
// guarded by a circuit breaker. Errors surface to the caller, which falls back
// to the local heuristic.
package aigateway
