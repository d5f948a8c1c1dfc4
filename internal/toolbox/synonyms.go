package toolbox

import "strings"

// synonyms maps query keywords to expansion terms. The table is curated
// for the dataset's recurring themes; it is consulted only when a
// semantic search comes back empty.
var synonyms = map[string][]string{
	"death": {"dying", "murder", "dead", "kill", "fatal"},
	"dream": {"dreams", "subconscious", "sleep"},
	"robot": {"android", "AI", "machine", "cyborg"},
}

// synonymOrder keeps expansion output deterministic.
var synonymOrder = []string{"death", "dream", "robot"}

// expandQuery appends synonym groups for every keyword present in the
// query. Queries without a keyword come back unchanged.
func expandQuery(query string) string {
	lower := strings.ToLower(query)

	var expansions []string
	for _, keyword := range synonymOrder {
		if strings.Contains(lower, keyword) {
			expansions = append(expansions, synonyms[keyword]...)
		}
	}
	if len(expansions) == 0 {
		return query
	}
	return query + " (" + strings.Join(expansions, " OR ") + ")"
}
