package keyword

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Suggestion is a candidate replacement for a term that is not in the dictionary.
type Suggestion struct {
	Term      string  `json:"term"`
	Distance  int     `json:"distance"`
	Frequency int     `json:"frequency"`
	Score     float64 `json:"score"`
}

// SpellCheckResult is the outcome of checking a whole query.
type SpellCheckResult struct {
	OriginalQuery   string       `json:"original_query"`
	CorrectedQuery  string       `json:"corrected_query"`
	Suggestions     []Suggestion `json:"suggestions"`
	HasCorrections  bool         `json:"has_corrections"`
	MisspelledTerms []string     `json:"misspelled_terms"`
}

// SpellChecker suggests corrections for query terms using the vocabulary of an index.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	once    sync.Once
	loadErr error
	terms   []string
	termSet map[string]struct{}
}

// SpellCheckerOption configures a SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores dictionary terms that occur in fewer than f passages.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict. The vocabulary is read on first use.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SpellChecker) load() error {
	s.once.Do(func() {
		terms, err := s.dictionary.GetAllTerms()
		if err != nil {
			s.loadErr = err
			return
		}
		sort.Strings(terms)
		s.terms = terms
		s.termSet = make(map[string]struct{}, len(terms))
		for _, t := range terms {
			s.termSet[strings.ToLower(t)] = struct{}{}
		}
	})
	return s.loadErr
}

// Check looks up every query term and replaces unknown ones with their best suggestion.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	result := &SpellCheckResult{
		OriginalQuery:   query,
		Suggestions:     []Suggestion{},
		MisspelledTerms: []string{},
	}
	terms := tokenizeQuery(query)
	corrected := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := s.termSet[term]; ok {
			corrected = append(corrected, term)
			continue
		}
		suggestions := s.Suggest(term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns dictionary terms within the maximum edit distance of term,
// best first: closer terms win, then more frequent ones, then alphabetical order.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if err := s.load(); err != nil {
		return nil
	}
	term = strings.ToLower(term)
	n := utf8.RuneCountInString(term)
	var out []Suggestion
	for _, candidate := range s.terms {
		if candidate == term {
			continue
		}
		diff := utf8.RuneCountInString(candidate) - n
		if diff < 0 {
			diff = -diff
		}
		if diff > s.maxDistance {
			continue
		}
		distance := DamerauLevenshteinDistance(term, candidate)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(candidate)
		if err != nil || freq < s.minFreq {
			continue
		}
		out = append(out, Suggestion{
			Term:      candidate,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})
	if len(out) > s.maxSuggestions {
		out = out[:s.maxSuggestions]
	}
	return out
}

// IsMisspelled reports whether term is absent from the dictionary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	if err := s.load(); err != nil {
		return false
	}
	_, ok := s.termSet[strings.ToLower(term)]
	return !ok
}

// SuggestedQuery returns the corrected query, or query itself when nothing changed.
func (s *SpellChecker) SuggestedQuery(query string) string {
	result, err := s.Check(query)
	if err != nil || !result.HasCorrections {
		return query
	}
	return result.CorrectedQuery
}
