// Package sentiment classifies feedback text.
//
// Score is the local keyword heuristic: pure, deterministic and total.
// Classifier prefers a remote classifier and falls back to Score on any error
// or malformed answer, so classification itself never fails.
package sentiment
