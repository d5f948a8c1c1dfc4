package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/marquee-ai/marquee/internal/domain"
)

// csvColumns are the headers required in the source dataset file.
var csvColumns = []string{
	"Poster_Link", "Series_Title", "Released_Year", "Certificate",
	"Runtime", "Genre", "IMDB_Rating", "Overview", "Meta_score",
	"Director", "Star1", "Star2", "Star3", "Star4", "No_of_Votes", "Gross",
}

var digitsRe = regexp.MustCompile(`\d+`)

// ReadCSV parses the IMDb dataset, normalizing raw values: "142 min"
// becomes 142, "28,341,469" becomes 28341469, and anything missing or
// unparseable becomes the dataset's sentinel (-999 for numbers,
// "Data Not Available" for text). Header names match case-insensitively
// so both No_of_Votes and No_of_votes load.
func ReadCSV(r io.Reader) ([]domain.Movie, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range csvColumns {
		if _, ok := idx[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("ingest: csv is missing required columns: %s", strings.Join(missing, ", "))
	}

	field := func(rec []string, name string) string {
		return strings.TrimSpace(rec[idx[strings.ToLower(name)]])
	}

	var movies []domain.Movie
	for record := 1; ; record++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: csv record %d: %w", record, err)
		}
		movies = append(movies, domain.Movie{
			PosterLink:   textField(field(rec, "Poster_Link")),
			SeriesTitle:  textField(field(rec, "Series_Title")),
			ReleasedYear: intField(field(rec, "Released_Year")),
			Certificate:  textField(field(rec, "Certificate")),
			RuntimeMin:   runtimeMinutes(field(rec, "Runtime")),
			Genre:        textField(field(rec, "Genre")),
			IMDBRating:   floatField(field(rec, "IMDB_Rating")),
			Overview:     textField(field(rec, "Overview")),
			MetaScore:    intField(field(rec, "Meta_score")),
			Director:     textField(field(rec, "Director")),
			Star1:        textField(field(rec, "Star1")),
			Star2:        textField(field(rec, "Star2")),
			Star3:        textField(field(rec, "Star3")),
			Star4:        textField(field(rec, "Star4")),
			NoOfVotes:    int64Field(field(rec, "No_of_Votes")),
			Gross:        int64Field(field(rec, "Gross")),
		})
	}
	return movies, nil
}

func textField(s string) string {
	if s == "" {
		return domain.MissingText
	}
	return s
}

// runtimeMinutes extracts the leading digit run from values like
// "142 min".
func runtimeMinutes(s string) int {
	digits := digitsRe.FindString(s)
	if digits == "" {
		return domain.MissingNumber
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return domain.MissingNumber
	}
	return n
}

// int64Field parses an integer, tolerating thousands separators and
// float-formatted values ("84.0").
func int64Field(s string) int64 {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return domain.MissingNumber
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return domain.MissingNumber
}

func intField(s string) int {
	return int(int64Field(s))
}

func floatField(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.MissingNumber
	}
	return f
}
