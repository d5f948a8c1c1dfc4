package toolbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marquee-ai/marquee/internal/llm"
	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/store"
	"github.com/marquee-ai/marquee/internal/tools"
)

// StructuredQueryName is the registry name of the SQL tool.
const StructuredQueryName = "movie_sql_query"

const structuredDescription = `Answers movie questions that need exact matches, filtering, sorting,
grouping, ranking, or aggregation by generating and executing a SQL query
against the movies table. Columns: Series_Title (movie name),
Released_Year, Certificate (age rating), Runtime (minutes), Genre,
IMDB_Rating, Overview (plot summary), Meta_score, Director, Star1-Star4
(lead cast), No_of_votes, Gross (US dollars). Describe the data you need
in plain language; a query is written for you.`

const structuredSchema = `{
  "type": "object",
  "properties": {
    "request": {
      "type": "string",
      "description": "Natural-language description of the rows or aggregate to fetch"
    }
  },
  "required": ["request"]
}`

// StructuredQueryTool generates a guarded SELECT from a natural-language
// request and executes it against the movie store.
type StructuredQueryTool struct {
	gen   *SQLGenerator
	store store.MovieStore
	log   *logging.Logger
}

// NewStructuredQueryTool wires the SQL tool. maxRows caps result sets
// when the generated query carries no LIMIT.
func NewStructuredQueryTool(client llm.Client, st store.MovieStore, maxRows int, log *logging.Logger) *StructuredQueryTool {
	return &StructuredQueryTool{
		gen:   NewSQLGenerator(client, maxRows, log),
		store: st,
		log:   log.Sub("tool.sql"),
	}
}

func (t *StructuredQueryTool) Name() string        { return StructuredQueryName }
func (t *StructuredQueryTool) Description() string { return structuredDescription }
func (t *StructuredQueryTool) InputSchema() string { return structuredSchema }

// Execute runs the generate-guard-select pipeline. An empty result is a
// success: the agent sees [] and answers accordingly.
func (t *StructuredQueryTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a StructuredQueryArgs
	if err := tools.DecodeArgs(args, &a); err != nil {
		return "", tools.NewArgumentError(StructuredQueryName, "%v", err)
	}
	if a.Request == "" {
		return "", tools.NewArgumentError(StructuredQueryName, "request must not be empty")
	}

	query, err := t.gen.Generate(ctx, a.Request)
	if err != nil {
		return "", err
	}

	rows, err := t.store.Select(ctx, query)
	if err != nil {
		return "", err
	}

	t.log.Debug().Str("query", query).Int("rows", len(rows)).Msg("structured query executed")

	out, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("toolbox: encode rows: %w", err)
	}
	return string(out), nil
}
