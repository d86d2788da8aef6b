package composer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wagadu/finsight/internal/llmservice"
	"github.com/wagadu/finsight/internal/models"
)

// Composer turns retrieved chunks and a user question into a grounded
// answer with citations.
type Composer struct {
	llm llmservice.Generator
}

func NewComposer(llm llmservice.Generator) *Composer {
	return &Composer{llm: llm}
}

// Compose answers the query against the retrieved chunks. When the
// retrieval set is empty the composer falls back to a degraded prompt
// that tells the model no document content is available.
func (c *Composer) Compose(ctx context.Context, query string, retrieved []models.RetrievedChunk) (string, []models.Citation, error) {
	systemPrompt := models.DegradedPrompt
	if len(retrieved) > 0 {
		systemPrompt = fmt.Sprintf(models.GroundedPromptTemplate, BuildContext(retrieved))
	} else {
		log.Warn().Str("query", query).Msg("composing without retrieved context")
	}

	answer, err := c.llm.Generate(ctx, systemPrompt, query)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}
	return answer, BuildCitations(retrieved), nil
}

// ComposeWith behaves like Compose but uses the supplied prompt template
// instead of the default grounded template. The analyst runner uses this
// to apply its own instructions over the same context assembly.
func (c *Composer) ComposeWith(ctx context.Context, promptTemplate, query string, retrieved []models.RetrievedChunk) (string, []models.Citation, error) {
	systemPrompt := models.DegradedPrompt
	if len(retrieved) > 0 {
		systemPrompt = fmt.Sprintf(promptTemplate, BuildContext(retrieved))
	}

	answer, err := c.llm.Generate(ctx, systemPrompt, query)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}
	return answer, BuildCitations(retrieved), nil
}

// BuildContext renders retrieved chunks in rank order, each prefixed with
// its page label, joined by the context separator.
func BuildContext(retrieved []models.RetrievedChunk) string {
	sections := make([]string, 0, len(retrieved))
	for _, rc := range retrieved {
		sections = append(sections, fmt.Sprintf("[%s]\n%s", pageLabel(rc.PageNumber), rc.Content))
	}
	return strings.Join(sections, models.ContextSeparator)
}

// BuildCitations produces one citation per retrieved chunk, in rank
// order, with excerpts truncated to the excerpt limit.
func BuildCitations(retrieved []models.RetrievedChunk) []models.Citation {
	citations := make([]models.Citation, 0, len(retrieved))
	for i, rc := range retrieved {
		excerpt := rc.Content
		if len(excerpt) > models.ExcerptLimit {
			excerpt = excerpt[:models.ExcerptLimit] + "..."
		}
		citations = append(citations, models.Citation{
			ID:      fmt.Sprintf("cite-%d", i+1),
			Label:   pageLabel(rc.PageNumber),
			Excerpt: excerpt,
		})
	}
	return citations
}

func pageLabel(page int) string {
	if page > 0 {
		return fmt.Sprintf("Page %d", page)
	}
	return models.PageLabelUnknown
}
