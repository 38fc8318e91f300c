// Package llm holds the generation backends: Groq's OpenAI-compatible API,
// Google Gemini and a local Ollama daemon. All of them satisfy
// ports.GenerationProvider and report failures as GENERATION_FAILED errors.
package llm
