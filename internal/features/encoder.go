// Package features turns stored books into the feature rows served by the
// ML endpoints. Encoding takes its vocabulary and stopwords as parameters so
// identical input always yields identical output.
package features

import (
	"strings"
	"unicode"

	"bookshelf/internal/models"
)

// Categories is the catalog site's category taxonomy with spaces replaced
// by underscores.
var Categories = []string{
	"Academic", "Add_a_comment", "Adult_Fiction", "Art", "Autobiography", "Biography",
	"Business", "Childrens", "Christian", "Christian_Fiction", "Classics", "Contemporary",
	"Crime", "Cultural", "Default", "Erotica", "Fantasy", "Fiction", "Food_and_Drink",
	"Health", "Historical", "Historical_Fiction", "History", "Horror", "Humor", "Music",
	"Mystery", "New_Adult", "Nonfiction", "Novels", "Paranormal", "Parenting", "Philosophy",
	"Poetry", "Politics", "Psychology", "Religion", "Romance", "Science", "Science_Fiction",
	"Self_Help", "Sequential_Art", "Short_Stories", "Spirituality", "Sports_and_Games",
	"Suspense", "Thriller", "Travel", "Womens_Fiction", "Young_Adult",
}

// EnglishStopwords is the stopword set used by DefaultEncoder.
var EnglishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does", "doing",
	"down", "during", "each", "few", "for", "from", "further", "had", "has", "have",
	"having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "itself", "just", "me", "more",
	"most", "my", "myself", "no", "nor", "not", "now", "of", "off", "on", "once",
	"only", "or", "other", "our", "ours", "ourselves", "out", "over", "own", "s",
	"same", "she", "should", "so", "some", "such", "t", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they",
	"this", "those", "through", "to", "too", "under", "until", "up", "very", "was",
	"we", "were", "what", "when", "where", "which", "while", "who", "whom", "why",
	"will", "with", "would", "you", "your", "yours", "yourself", "yourselves",
}

// FeatureRow is the encoded form of one book. Price is deliberately absent;
// it is the label, see LabeledRow.
type FeatureRow struct {
	BookID               uint     `json:"book_id,omitempty"`
	Category             string   `json:"category"`
	CategoryVector       []int    `json:"category_vector"`
	Rating               int      `json:"rating"`
	Availability         int      `json:"availability"`
	InStock              int      `json:"in_stock"`
	NumberOfReviews      int      `json:"number_of_reviews"`
	TitleProcessed       []string `json:"title_processed"`
	DescriptionProcessed []string `json:"description_processed"`
}

// Encoder one-hot encodes categories against a fixed vocabulary and
// tokenizes text against a fixed stopword set.
type Encoder struct {
	Vocabulary []string
	Stopwords  map[string]struct{}

	index map[string]int
}

// NewEncoder builds an Encoder. Vocabulary order is the category vector order.
func NewEncoder(vocabulary, stopwords []string) *Encoder {
	e := &Encoder{
		Vocabulary: append([]string(nil), vocabulary...),
		Stopwords:  make(map[string]struct{}, len(stopwords)),
		index:      make(map[string]int, len(vocabulary)),
	}
	for i, v := range e.Vocabulary {
		e.index[v] = i
	}
	for _, w := range stopwords {
		e.Stopwords[strings.ToLower(w)] = struct{}{}
	}
	return e
}

// DefaultEncoder uses Categories and EnglishStopwords.
func DefaultEncoder() *Encoder {
	return NewEncoder(Categories, EnglishStopwords)
}

// Encode converts a stored book into a feature row.
func (e *Encoder) Encode(b models.Book) FeatureRow {
	row := FeatureRow{
		BookID:               b.ID,
		Category:             b.Category,
		CategoryVector:       e.CategoryVector(b.Category),
		Rating:               b.Rating,
		Availability:         b.Availability,
		NumberOfReviews:      b.NumberOfReviews,
		TitleProcessed:       e.Tokenize(b.Title),
		DescriptionProcessed: e.Tokenize(b.Description),
	}
	if b.Availability > 0 {
		row.InStock = 1
	}
	return row
}

// CategoryVector returns the one-hot vector for category. Categories outside
// the vocabulary, including "unknown", encode as all zeros.
func (e *Encoder) CategoryVector(category string) []int {
	vec := make([]int, len(e.Vocabulary))
	key := strings.ReplaceAll(strings.TrimSpace(category), " ", "_")
	if i, ok := e.index[key]; ok {
		vec[i] = 1
	}
	return vec
}

// Tokenize lowercases s, splits it on anything that is not a letter or a
// digit and drops stopwords. The result is never nil.
func (e *Encoder) Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := e.Stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
