// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (sentiment.go, feedback.go, user.go, events.go, errors.go)
// hold shared types and the interfaces adapters implement. No implementation code.
package domain
