package retrieval

import "strings"

// DefaultStyleGuides is the fixed corpus set consulted by style-grounded
// stages when the caller does not name a specific guide.
var DefaultStyleGuides = []string{
	"chicago-manual",
	"elements-of-style",
	"house-style",
}

// genreCorpusPrefix namespaces per-genre convention corpora.
const genreCorpusPrefix = "genre-"

// StyleGuideCorpora returns the corpus ids for a named style guide, falling
// back to the default set when name is empty.
func StyleGuideCorpora(name string) []string {
	if name == "" {
		return DefaultStyleGuides
	}
	return []string{Slug(name)}
}

// GenreCorpus resolves a genre name to its convention corpus id. An
// unrecognized (empty) genre yields ok=false and the caller must treat that
// as "no grounding available", not an error.
func GenreCorpus(genre string) (string, bool) {
	slug := Slug(genre)
	if slug == "" {
		return "", false
	}
	return genreCorpusPrefix + slug, true
}

// Slug lowercases a name and joins its words with hyphens, producing a
// corpus-id-safe token. Underscores and existing hyphens count as word
// separators.
func Slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.Join(strings.Fields(name), "-")
}

// Humanize reverses Slug for display: hyphens become spaces and each word is
// title-cased.
func Humanize(corpusID string) string {
	words := strings.Split(corpusID, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
