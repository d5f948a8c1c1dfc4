package toolbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marquee-ai/marquee/internal/domain"
	"github.com/marquee-ai/marquee/internal/embedding"
	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/search"
	"github.com/marquee-ai/marquee/internal/tools"
)

// SemanticSearchName is the registry name of the retrieval tool.
const SemanticSearchName = "movie_semantic_search"

const (
	defaultK = 5
	maxK     = 50
)

const semanticDescription = `Finds movies by plot, theme, or mood using similarity search over
movie overview embeddings. Use it for questions about what happens in a
movie rather than its metadata. Formulate the query from the user's
intent; results are titles ranked by similarity. k controls how many
matches come back (default 5).`

const semanticSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "Plot or theme description to search for"
    },
    "k": {
      "type": "integer",
      "description": "Number of matches to return (default 5, max 50)"
    }
  },
  "required": ["query"]
}`

// SemanticSearchTool embeds the query and retrieves the most similar
// movie overviews from the vector index.
type SemanticSearchTool struct {
	embedder embedding.Provider
	index    search.Index
	defaultK int
	maxK     int
	log      *logging.Logger
}

// NewSemanticSearchTool wires the retrieval tool. defK and kCap fall
// back to 5 and 50 when zero.
func NewSemanticSearchTool(embedder embedding.Provider, index search.Index, defK, kCap int, log *logging.Logger) *SemanticSearchTool {
	if defK <= 0 {
		defK = defaultK
	}
	if kCap <= 0 {
		kCap = maxK
	}
	return &SemanticSearchTool{
		embedder: embedder,
		index:    index,
		defaultK: defK,
		maxK:     kCap,
		log:      log.Sub("tool.semantic"),
	}
}

func (t *SemanticSearchTool) Name() string        { return SemanticSearchName }
func (t *SemanticSearchTool) Description() string { return semanticDescription }
func (t *SemanticSearchTool) InputSchema() string { return semanticSchema }

// Execute embeds the query and searches the index. An empty result set
// triggers one synonym-expansion retry; a still-empty result is a valid
// observation, not an error.
func (t *SemanticSearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a SemanticSearchArgs
	if err := tools.DecodeArgs(args, &a); err != nil {
		return "", tools.NewArgumentError(SemanticSearchName, "%v", err)
	}
	if a.Query == "" {
		return "", tools.NewArgumentError(SemanticSearchName, "query must not be empty")
	}

	k := t.defaultK
	if a.K != nil {
		k = *a.K
	}
	if k < 0 {
		return "", tools.NewArgumentError(SemanticSearchName, "k must not be negative")
	}
	if k == 0 {
		return "[]", nil
	}
	if k > t.maxK {
		k = t.maxK
	}

	docs, err := t.search(ctx, a.Query, k)
	if err != nil {
		return "", err
	}

	if len(docs) == 0 {
		expanded := expandQuery(a.Query)
		if expanded != a.Query {
			t.log.Debug().Str("query", expanded).Msg("retrying with expanded query")
			docs, err = t.search(ctx, expanded, k)
			if err != nil {
				return "", err
			}
		}
	}

	out, err := json.Marshal(docs)
	if err != nil {
		return "", fmt.Errorf("toolbox: encode results: %w", err)
	}
	return string(out), nil
}

func (t *SemanticSearchTool) search(ctx context.Context, query string, k int) ([]domain.RetrievedDocument, error) {
	vec, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &search.RetrievalError{Op: "embed", Err: err}
	}

	hits, err := t.index.Search(ctx, vec, k)
	if err != nil {
		return nil, &search.RetrievalError{Op: "index search", Err: err}
	}

	// Hits arrive ordered by similarity, so the first occurrence of a
	// title is its best score.
	seen := make(map[string]bool, len(hits))
	docs := make([]domain.RetrievedDocument, 0, len(hits))
	for _, h := range hits {
		if seen[h.Title] {
			continue
		}
		seen[h.Title] = true
		docs = append(docs, domain.RetrievedDocument{
			Ref:   h.DocID,
			Title: h.Title,
			Score: h.Score,
		})
	}
	return docs, nil
}
