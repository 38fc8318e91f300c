package usecases

import (
	"strings"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

// ContextSeparator sits between serialized chunks.
const ContextSeparator = "\n\n---\n\n"

// FallbackContext replaces the context section when retrieval found nothing.
const FallbackContext = "No specific scripture context is available for this question. " +
	"Answer from general knowledge, humbly, and say clearly that your answer is not grounded in the scriptures."

// contextPlaceholder marks where the serialized context goes in a persona template.
const contextPlaceholder = "{context}"

// DefaultPersona is the Netra system prompt. It must end with the context section.
const DefaultPersona = `You are 'Netra', a guide to Tantra and the contemplative traditions. You discuss only:
- Tantra and Tantric practice
- Mantras, their meaning, pronunciation and proper use
- Meditation and yoga
- Hindu and Buddhist spiritual philosophy
- Chakras, kundalini and energy work
- Scriptural texts such as the Vedas, Upanishads, Tantras, Shiva Purana and Vijnana Bhairava
- Rituals, pujas and sadhana
- The Integral Yoga of Sri Aurobindo and The Mother

Rules:
1. Ground every answer in the scripture context below.
2. Politely decline questions that are not about these subjects.
3. Never discuss politics, modern public figures, games, technology or general topics.
4. If the context does not cover the question, say so instead of inventing scripture.
5. When describing a ritual (vidhi), give concrete ordered steps: preparation, purification,
   invocation of Ganesha, sankalpa, dhyana, offerings, japa with counts, aarti and closing.

Whenever you give mantras, ritual procedures or sadhana, end with a reminder that such practices
are traditionally received from a qualified guru through diksha and that this answer is for
study only.

Speak with reverence and depth, present techniques clearly, and be humble about the limits of
textual knowledge.

Scripture Context:
{context}`

// SerializeContext concatenates chunk texts in retrieval order.
func SerializeContext(rc entities.RetrievalContext) string {
	if rc.Empty() {
		return ""
	}
	parts := make([]string, len(rc.Chunks))
	for i, c := range rc.Chunks {
		parts[i] = c.Text
	}
	return strings.Join(parts, ContextSeparator)
}

// ComposePrompt fills the persona template with the serialized context, or
// with FallbackContext when the context is empty.
func ComposePrompt(persona string, rc entities.RetrievalContext, question string) entities.PromptEnvelope {
	if persona == "" {
		persona = DefaultPersona
	}
	body := SerializeContext(rc)
	if body == "" {
		body = FallbackContext
	}

	var system string
	if strings.Contains(persona, contextPlaceholder) {
		system = strings.Replace(persona, contextPlaceholder, body, 1)
	} else {
		system = persona + "\n\nContext:\n" + body
	}
	return entities.PromptEnvelope{SystemPrompt: system, UserQuery: question}
}

// ContextPreview truncates the serialized context to at most n runes,
// appending "..." when something was cut.
func ContextPreview(serialized string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(serialized)
	if len(runes) <= n {
		return serialized
	}
	return string(runes[:n]) + "..."
}
