package domain

// Sentinels used by the dataset for values missing from the source CSV.
// They are stored as-is; the agent's system prompt explains their meaning
// so answers can say "not available" instead of quoting them.
const (
	MissingNumber = -999
	MissingText   = "Data Not Available"
)

// Movie is one row of the movies table. Column names follow the source
// dataset so generated SQL and ingested CSV headers line up.
type Movie struct {
	ID           int64   `json:"id"`
	PosterLink   string  `json:"posterLink"`
	SeriesTitle  string  `json:"seriesTitle"`
	ReleasedYear int     `json:"releasedYear"`
	Certificate  string  `json:"certificate"`
	RuntimeMin   int     `json:"runtimeMin"`
	Genre        string  `json:"genre"`
	IMDBRating   float64 `json:"imdbRating"`
	Overview     string  `json:"overview"`
	MetaScore    int     `json:"metaScore"`
	Director     string  `json:"director"`
	Star1        string  `json:"star1"`
	Star2        string  `json:"star2"`
	Star3        string  `json:"star3"`
	Star4        string  `json:"star4"`
	NoOfVotes    int64   `json:"noOfVotes"`
	Gross        int64   `json:"gross"`
}

// RetrievedDocument is a semantic-search hit: a record reference, its
// similarity to the query, and the matched text. Produced only by the
// retriever; read-only downstream.
type RetrievedDocument struct {
	Ref     int64   `json:"ref"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet,omitempty"`
}
