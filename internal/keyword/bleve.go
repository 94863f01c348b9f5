package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/askpdf/internal/models"
)

// PassageIndex is an in-memory bleve index over the chunks of one corpus.
// Documents are keyed by chunk position so duplicate chunk IDs cannot collide.
type PassageIndex struct {
	index  bleve.Index
	chunks []models.Chunk
	vocab  map[string]int
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard analyzer: lowercase and tokenize without stemming, so "bayes" matches "Bayes"
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("source", textFieldMapping)
	docMapping.AddFieldMappingsAt("page", bleve.NewNumericFieldMapping())
	im.AddDocumentMapping("passage", docMapping)
	im.DefaultType = "passage"
	im.DefaultMapping = docMapping
	return im
}

// NewPassageIndex indexes chunks in memory.
func NewPassageIndex(chunks []models.Chunk) (*PassageIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create passage index: %w", err)
	}
	batch := index.NewBatch()
	for i, c := range chunks {
		doc := map[string]interface{}{
			"content": c.Content,
			"source":  c.Metadata.Source,
			"page":    float64(c.Metadata.Page),
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index chunk %d: %w", i, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index passages: %w", err)
	}
	p := &PassageIndex{index: index, chunks: chunks}
	if p.vocab, err = p.readVocabulary(); err != nil {
		_ = index.Close()
		return nil, err
	}
	return p, nil
}

// Len returns the number of indexed passages.
func (p *PassageIndex) Len() int {
	return len(p.chunks)
}

// Search runs a match query over passage text and returns up to limit chunks
// by descending relevance, ties by position.
// With SourceBoost or PhraseBoost above 1, content and source scores are
// added, partial term coverage is penalised and phrase matches are boosted.
func (p *PassageIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sourceBoost, phraseBoost := 1.0, 1.0
	fuzzy, fuzziness := false, 2
	if opts != nil {
		if opts.SourceBoost > 0 {
			sourceBoost = opts.SourceBoost
		}
		if opts.PhraseBoost > 0 {
			phraseBoost = opts.PhraseBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	var scores map[string]float64
	var err error
	if sourceBoost <= 1.0 && phraseBoost <= 1.0 {
		scores, err = p.searchSingle(query, limit, fuzzy, fuzziness)
	} else {
		scores, err = p.searchWithBoosts(query, limit, sourceBoost, phraseBoost, fuzzy, fuzziness)
	}
	if err != nil {
		return nil, err
	}
	return p.rank(scores, limit), nil
}

func (p *PassageIndex) searchSingle(query string, limit int, fuzzy bool, fuzziness int) (map[string]float64, error) {
	q := p.matchQuery(query, "content", fuzzy, fuzziness)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := p.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("passage search failed: %w", err)
	}
	scores := make(map[string]float64, len(results.Hits))
	for _, hit := range results.Hits {
		scores[hit.ID] = hit.Score
	}
	return scores, nil
}

func (p *PassageIndex) searchWithBoosts(query string, limit int, sourceBoost, phraseBoost float64, fuzzy bool, fuzziness int) (map[string]float64, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	terms := tokenizeQuery(query)

	sourceScores, err := p.fieldScores(p.matchQuery(query, "source", fuzzy, fuzziness), reqSize)
	if err != nil {
		return nil, err
	}
	contentScores, err := p.fieldScores(p.matchQuery(query, "content", fuzzy, fuzziness), reqSize)
	if err != nil {
		return nil, err
	}

	coverage := map[string]int{}
	if len(terms) > 1 {
		for _, term := range terms {
			hits, err := p.fieldScores(p.matchQuery(term, "content", fuzzy, fuzziness), reqSize)
			if err != nil {
				continue
			}
			for id := range hits {
				coverage[id]++
			}
		}
	}
	phrases := map[string]float64{}
	if phraseBoost > 1.0 && len(terms) > 1 {
		pq := bleve.NewMatchPhraseQuery(query)
		pq.SetField("content")
		if phrases, err = p.fieldScores(pq, reqSize); err != nil {
			phrases = map[string]float64{}
		}
	}

	// only content hits are passages; a source match alone lifts every chunk
	// of that file, which is not useful for locating text
	scores := make(map[string]float64, len(contentScores))
	for id, content := range contentScores {
		score := content + sourceScores[id]*sourceBoost
		if len(terms) > 1 {
			matched := coverage[id]
			if matched == 0 {
				matched = 1
			}
			c := float64(matched) / float64(len(terms))
			score *= c * c
		}
		if _, ok := phrases[id]; ok {
			score *= phraseBoost
		}
		scores[id] = score
	}
	return scores, nil
}

func (p *PassageIndex) fieldScores(q blevequery.Query, size int) (map[string]float64, error) {
	req := bleve.NewSearchRequest(q)
	req.Size = size
	results, err := p.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("passage search failed: %w", err)
	}
	out := make(map[string]float64, len(results.Hits))
	for _, hit := range results.Hits {
		out[hit.ID] = hit.Score
	}
	return out, nil
}

// matchQuery builds a match query on field, or a disjunction of fuzzy term
// queries when fuzzy is set.
func (p *PassageIndex) matchQuery(query, field string, fuzzy bool, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(query)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

func (p *PassageIndex) rank(scores map[string]float64, limit int) []models.ScoredChunk {
	type scored struct {
		pos   int
		score float64
	}
	merged := make([]scored, 0, len(scores))
	for id, score := range scores {
		pos, err := strconv.Atoi(id)
		if err != nil || pos < 0 || pos >= len(p.chunks) {
			continue
		}
		merged = append(merged, scored{pos: pos, score: score})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].score != merged[j].score {
			return merged[i].score > merged[j].score
		}
		return merged[i].pos < merged[j].pos
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	out := make([]models.ScoredChunk, len(merged))
	for i, s := range merged {
		out[i] = models.ScoredChunk{Chunk: p.chunks[s.pos], Score: s.score}
	}
	return out
}

func (p *PassageIndex) readVocabulary() (map[string]int, error) {
	dict, err := p.index.FieldDict("content")
	if err != nil {
		return nil, fmt.Errorf("failed to read passage vocabulary: %w", err)
	}
	defer dict.Close()
	vocab := make(map[string]int)
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read passage vocabulary: %w", err)
		}
		if entry == nil {
			break
		}
		vocab[entry.Term] = int(entry.Count)
	}
	return vocab, nil
}

// GetAllTerms returns the content vocabulary.
func (p *PassageIndex) GetAllTerms() ([]string, error) {
	terms := make([]string, 0, len(p.vocab))
	for t := range p.vocab {
		terms = append(terms, t)
	}
	return terms, nil
}

// GetTermFrequency returns the number of passages containing term.
func (p *PassageIndex) GetTermFrequency(term string) (int, error) {
	return p.vocab[strings.ToLower(term)], nil
}

// Close releases the bleve index.
func (p *PassageIndex) Close() error {
	return p.index.Close()
}

// tokenizeQuery lowercases query and splits it into runs of letters and digits.
func tokenizeQuery(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
