// Package toolbox implements the two movie-dataset tools the agent can
// invoke: a structured SQL query tool and a semantic overview search
// tool. Both decode their arguments strictly and surface failures as
// errors the reasoning loop records as observations.
package toolbox

// StructuredQueryArgs is the argument shape of movie_sql_query.
type StructuredQueryArgs struct {
	Request string `json:"request"`
}

// SemanticSearchArgs is the argument shape of movie_semantic_search.
// K distinguishes absent (nil, use the default) from an explicit 0
// (return nothing).
type SemanticSearchArgs struct {
	Query string `json:"query"`
	K     *int   `json:"k"`
}
