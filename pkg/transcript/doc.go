// Package transcript renders line-delimited JSON session logs as plain-text transcripts.
//
// Invariants:
// - Only records whose payload is a "message" from "user" or "assistant" produce turns.
// - A message without any non-empty text part produces no turn.
// - Turns are written in input order, separated by "\n---\n", with no leading or
//   trailing separator.
// - Malformed lines are skipped, never fatal.
//
// Usage:
//
//	ex := transcript.NewExtractor(log.Logger)
//	res, err := ex.ConvertFile(ctx, "rollout.jsonl") // writes rollout.txt
//	_ = res.Stats.Turns
package transcript
