// Package app provides the application service layer.
//
// Orchestrates use cases: feedback submission and moderation, sentiment
// statistics, sign-up and sign-in. Sits between HTTP handlers and domain
// repositories. Depends on domain interfaces, not concrete implementations.
package app
