package usecases

import "github.com/0xcro3dile/netra-go/internal/domain/entities"

// OffTopicReply is returned instead of a generated answer when the guard rejects a question.
const OffTopicReply = "I am Netra, devoted to the wisdom of Tantra and spiritual practices. " +
	"This question falls outside my realm of knowledge. " +
	"Please ask about mantras, meditation, yoga, or spiritual teachings."

// RelevanceGuard runs between retrieval and prompt composition. A rejection
// short-circuits the request with reply; the provider is never called.
type RelevanceGuard interface {
	Check(question string, rc entities.RetrievalContext) (reply string, rejected bool)
}

// ScoreGuard rejects questions whose best retrieved chunk scores below MinScore.
// Empty contexts pass through so the humble fallback applies.
type ScoreGuard struct {
	MinScore float64
	Reply    string
}

// NewScoreGuard creates a ScoreGuard with the default off-topic reply.
func NewScoreGuard(minScore float64) *ScoreGuard {
	return &ScoreGuard{MinScore: minScore, Reply: OffTopicReply}
}

// Check implements RelevanceGuard.
func (g *ScoreGuard) Check(_ string, rc entities.RetrievalContext) (string, bool) {
	if rc.Empty() || rc.BestScore() >= g.MinScore {
		return "", false
	}
	reply := g.Reply
	if reply == "" {
		reply = OffTopicReply
	}
	return reply, true
}
