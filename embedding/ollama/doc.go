// Package ollama talks to a local Ollama server: /api/embed for semantic
// vectors, /api/generate for prompt-based sentiment and /api/show to check
// that a model is available before a run starts.
package ollama
