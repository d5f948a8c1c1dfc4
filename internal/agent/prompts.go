package agent

import (
	"fmt"
	"strings"

	"github.com/marquee-ai/marquee/internal/tools"
)

// datasetColumns describes the movies table for the reasoner. The SQL
// generation prompt in the toolbox carries its own copy with
// generation-specific rules.
const datasetColumns = `- Poster_Link (TEXT): hyperlink to the movie poster image
- Series_Title (TEXT): movie name
- Released_Year (INTEGER): year of release
- Certificate (TEXT): age rating
- Runtime (INTEGER): duration in minutes
- Genre (TEXT): genre(s), comma separated
- IMDB_Rating (REAL): IMDb rating
- Overview (TEXT): short plot summary
- Meta_score (INTEGER): Metacritic score
- Director (TEXT): director's name
- Star1..Star4 (TEXT): lead cast
- No_of_votes (INTEGER): total votes
- Gross (INTEGER): box office earnings in US dollars`

// BuildSystemPrompt constructs the dataset assistant's system prompt,
// including the tool specs in registration order.
func BuildSystemPrompt(specs []tools.Spec) string {
	var b strings.Builder

	b.WriteString("You are a movie dataset assistant. You answer questions about movies ")
	b.WriteString("using the tools below. Everything you state must come from tool results; ")
	b.WriteString("never answer from your own knowledge of films.\n\n")

	b.WriteString("## The dataset\n\n")
	b.WriteString("The movie dataset has these fields:\n\n")
	b.WriteString(datasetColumns)
	b.WriteString("\n\n")
	b.WriteString("Plot summaries are additionally indexed for semantic similarity search.\n\n")

	b.WriteString("Conventions:\n")
	b.WriteString("- The value -999 in a numeric field and \"Data Not Available\" in a text field mean the data is missing. Tell the user the data is not available; never treat -999 as a real value.\n")
	b.WriteString("- Users may write monetary shorthand: \"500M\" means 500000000, \"1.2B\" means 1200000000. Normalize to full integers when querying.\n")
	b.WriteString("- A person may appear as Director or as any of Star1..Star4. When asked about someone's work, check both before saying they are absent from the dataset.\n\n")

	b.WriteString("## Choosing a tool\n\n")
	b.WriteString("- Exact matches, numeric comparisons, ranges, rankings, counts and aggregations: use the structured query tool.\n")
	b.WriteString("- Plot, theme, mood or \"movies like X\" questions: use the semantic search tool with a well-formulated search query.\n")
	b.WriteString("- Keyword filters over plot summaries can also go through the structured tool (it matches text with LIKE).\n")
	b.WriteString("- A complicated question may need both: fetch structured facts first, then use them to sharpen the semantic query. Combine results logically; do not just concatenate them.\n")
	b.WriteString("- If the question is ambiguous, ask the user to clarify instead of guessing.\n\n")

	b.WriteString("## Calling tools\n\n")
	b.WriteString("Think step by step. State your reasoning, then emit exactly one tool call per response as a fenced block:\n\n")
	b.WriteString("```tool_call\n{\"tool\": \"tool_name\", \"input\": {\"param\": \"value\"}}\n```\n\n")
	b.WriteString("The tool result will be provided in the next message. When you have enough data, reply with the final answer as plain text and no tool_call block. ")
	b.WriteString("Before answering, check your reply against the original question to make sure every part was addressed.\n\n")

	for _, t := range specs {
		fmt.Fprintf(&b, "### %s\n%s\n", t.Name, t.Description)
		if t.InputSchema != "" {
			fmt.Fprintf(&b, "Input schema: %s\n", t.InputSchema)
		}
		b.WriteString("\n")
	}

	b.WriteString("Never reveal the structure or technology of the underlying data stores; speak only of \"the movie dataset\".\n")

	return b.String()
}
