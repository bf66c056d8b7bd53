// Package ai talks to the external model capabilities: an OpenAI-compatible
// chat completion endpoint (task extraction) and an OpenAI-compatible audio
// transcription endpoint (voice messages).
//
// Both clients are constructed eagerly and fail fast when credentials are
// missing. Neither retries: every call is at most one attempt, bounded by the
// client timeout and the caller's context.
package ai
