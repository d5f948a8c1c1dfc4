package toolbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/marquee-ai/marquee/internal/llm"
	"github.com/marquee-ai/marquee/internal/logging"
	"github.com/marquee-ai/marquee/internal/store"
)

const defaultMaxRows = 25

// sqlGenSystemPrompt instructs the model to emit exactly one plain-text
// SQLite SELECT. Temperature is pinned to 0 so the same request maps to
// the same query.
const sqlGenSystemPrompt = `You are a movie database assistant that writes SQLite queries.

Database schema:
  Table: movies
  Columns:
    Poster_Link (TEXT): hyperlink to the movie poster image
    Series_Title (TEXT): movie name
    Released_Year (INTEGER): year of release
    Certificate (TEXT): age rating
    Runtime (INTEGER): duration in minutes
    Genre (TEXT): comma-separated genre list
    IMDB_Rating (REAL): IMDb rating
    Overview (TEXT): short plot summary
    Meta_score (INTEGER): Metacritic score
    Director (TEXT): director name
    Star1, Star2, Star3, Star4 (TEXT): lead cast
    No_of_votes (INTEGER): total votes
    Gross (INTEGER): box office earnings in US dollars

Rules:
- Use Series_Title for movie names and Released_Year for release years.
- Prefer LIKE over exact match when searching Overview.
- Missing values are stored as -999 (numeric) or 'Data Not Available' (text).
- Only reference columns from the schema above.
- Output a single valid SQLite SELECT statement in plain text: no markdown,
  no explanation, no trailing semicolon.`

// deniedKeywords are rejected wherever they appear outside string
// literals. INTO covers both INSERT INTO and REPLACE INTO without
// banning the replace() function.
var deniedKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true,
	"ALTER": true, "CREATE": true, "TRUNCATE": true, "ATTACH": true,
	"DETACH": true, "PRAGMA": true, "VACUUM": true, "REINDEX": true,
	"GRANT": true, "REVOKE": true, "INTO": true,
}

// SQLGenerator turns a natural-language data request into one guarded
// SQLite SELECT via an LLM call.
type SQLGenerator struct {
	client  llm.Client
	maxRows int
	log     *logging.Logger
}

// NewSQLGenerator creates a generator. maxRows bounds result sets when
// the model omits a LIMIT.
func NewSQLGenerator(client llm.Client, maxRows int, log *logging.Logger) *SQLGenerator {
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	return &SQLGenerator{client: client, maxRows: maxRows, log: log.Sub("sqlgen")}
}

// Generate produces a cleaned, guarded SELECT for the request.
func (g *SQLGenerator) Generate(ctx context.Context, request string) (string, error) {
	resp, err := g.client.Complete(ctx, llm.CompletionRequest{
		System:      sqlGenSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: request}},
		MaxTokens:   512,
		Temperature: llm.Temp(0),
	})
	if err != nil {
		return "", fmt.Errorf("toolbox: sql generation: %w", err)
	}

	query, err := cleanSQL(resp.Content)
	if err != nil {
		return "", &store.QueryError{Query: strings.TrimSpace(resp.Content), Message: err.Error()}
	}

	guarded, err := guardSQL(query, g.maxRows)
	if err != nil {
		return "", err
	}

	g.log.Debug().Str("query", guarded).Msg("sql generated")
	return guarded, nil
}

// cleanSQL strips the markdown artifacts models wrap queries in: code
// fences, backticks, a leading language tag, and a trailing semicolon.
func cleanSQL(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	s = strings.ReplaceAll(s, "`", "")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(strings.ToLower(s), "sql") {
		s = strings.TrimSpace(s[3:])
	}

	s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	if s == "" {
		return "", fmt.Errorf("reasoner returned no SQL")
	}
	return s, nil
}

// guardSQL admits only a single SELECT statement, rejects write and
// schema keywords, and appends a LIMIT when the query has none.
func guardSQL(query string, maxRows int) (string, error) {
	stripped := stripStringLiterals(query)

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stripped)), "SELECT") {
		return "", &store.QueryError{Query: query, Message: "only SELECT statements are allowed"}
	}
	if strings.Contains(stripped, ";") {
		return "", &store.QueryError{Query: query, Message: "multiple statements are not allowed"}
	}

	hasLimit := false
	for _, tok := range tokenizeSQL(stripped) {
		if deniedKeywords[tok] {
			return "", &store.QueryError{Query: query, Message: fmt.Sprintf("keyword %s is not allowed", tok)}
		}
		if tok == "LIMIT" {
			hasLimit = true
		}
	}

	if !hasLimit {
		query = fmt.Sprintf("%s LIMIT %d", query, maxRows)
	}
	return query, nil
}

// stripStringLiterals blanks out single-quoted literals so quoted movie
// titles never trip the keyword scan.
func stripStringLiterals(query string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '\'' {
			// '' inside a literal is an escaped quote
			if inString && i+1 < len(query) && query[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
			continue
		}
		if !inString {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func tokenizeSQL(query string) []string {
	return strings.FieldsFunc(strings.ToUpper(query), func(r rune) bool {
		return !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_'
	})
}
