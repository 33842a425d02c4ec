package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/omaribamark/factcheck-core/internal/domain/entities"
	"github.com/omaribamark/factcheck-core/internal/domain/ports"
	"github.com/omaribamark/factcheck-core/internal/infrastructure/logger"
)

const (
	// DefaultSimilarityThreshold is the lexical score at which two claims merge.
	DefaultSimilarityThreshold = 0.8
	// DefaultSemanticThreshold is the vector score at which two claims merge.
	DefaultSemanticThreshold = 0.92
	// similarityHashMaxLen truncates the sorted token join.
	similarityHashMaxLen = 64
	// recentCandidateLimit bounds the lexical scan of open claims.
	recentCandidateLimit = 500
	// semanticCandidateLimit bounds vector search hits.
	semanticCandidateLimit = 20
)

// SimilarityDetector finds open claims that duplicate a new submission.
type SimilarityDetector struct {
	relationalDB      ports.RelationalDB
	embedder          ports.Embedder
	index             ports.ClaimIndex
	threshold         float64
	semanticThreshold float64
	log               *logger.Logger
}

// NewSimilarityDetector creates a detector. embedder and index may be nil,
// in which case only lexical matching runs.
func NewSimilarityDetector(relationalDB ports.RelationalDB, embedder ports.Embedder, index ports.ClaimIndex, threshold, semanticThreshold float64, log *logger.Logger) *SimilarityDetector {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if semanticThreshold <= 0 {
		semanticThreshold = DefaultSemanticThreshold
	}
	return &SimilarityDetector{
		relationalDB:      relationalDB,
		embedder:          embedder,
		index:             index,
		threshold:         threshold,
		semanticThreshold: semanticThreshold,
		log:               log,
	}
}

// MatchResult is the outcome of a duplicate search.
type MatchResult struct {
	Matches []*entities.Claim
	// Embedding of the new claim, nil when semantic search is off or failed.
	Embedding []float32
}

// SemanticResult holds the vector index hits for a claim. It is computed
// outside the intake transaction since it calls external services.
type SemanticResult struct {
	Embedding []float32
	ClaimIDs  []string
}

// FindMatches returns the non-terminal claims that duplicate claim.
// Semantic search failures are logged and lexical results still returned.
func (d *SimilarityDetector) FindMatches(ctx context.Context, claim *entities.Claim) (*MatchResult, error) {
	return d.MatchWith(ctx, claim, d.Semantic(ctx, claim))
}

// Semantic embeds claim and searches the vector index. It returns an empty
// result when semantic search is off or fails.
func (d *SimilarityDetector) Semantic(ctx context.Context, claim *entities.Claim) *SemanticResult {
	result := &SemanticResult{}
	if d.embedder == nil || d.index == nil {
		return result
	}
	embedding, hits, err := d.semanticHits(ctx, claim)
	if err != nil {
		d.log.Warn("semantic duplicate search failed", "error", err)
		return result
	}
	result.Embedding = embedding
	for _, h := range hits {
		result.ClaimIDs = append(result.ClaimIDs, h.ClaimID)
	}
	return result
}

// MatchWith runs the lexical search and resolves the semantic hits in sem.
// Hash hits are only candidates: every lexical match must reach the
// similarity threshold.
func (d *SimilarityDetector) MatchWith(ctx context.Context, claim *entities.Claim, sem *SemanticResult) (*MatchResult, error) {
	candidates := make(map[string]*entities.Claim)
	matched := make(map[string]bool)

	sameHash, err := d.relationalDB.FindClaimsBySimilarityHash(ctx, claim.SimilarityHash)
	if err != nil {
		return nil, fmt.Errorf("finding claims by hash: %w", err)
	}
	recent, err := d.relationalDB.ListClaims(ctx, entities.ClaimFilter{
		Statuses: entities.PrePublicationStatuses(),
		Limit:    recentCandidateLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing open claims: %w", err)
	}
	for _, c := range append(sameHash, recent...) {
		candidates[c.ID] = c
		if Similarity(claim, c) >= d.threshold {
			matched[c.ID] = true
		}
	}

	result := &MatchResult{}
	if sem != nil {
		result.Embedding = sem.Embedding
		var missing []string
		for _, id := range sem.ClaimIDs {
			matched[id] = true
			if _, ok := candidates[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			found, err := d.relationalDB.FindClaimsByIDs(ctx, missing)
			if err != nil {
				return nil, fmt.Errorf("loading semantic matches: %w", err)
			}
			for _, c := range found {
				candidates[c.ID] = c
			}
		}
	}

	for id := range matched {
		c, ok := candidates[id]
		if !ok || c.ID == claim.ID || c.Status.IsTerminal() {
			continue
		}
		result.Matches = append(result.Matches, c)
	}
	sort.Slice(result.Matches, func(i, j int) bool {
		return result.Matches[i].CreatedAt.Before(result.Matches[j].CreatedAt)
	})
	return result, nil
}

func (d *SimilarityDetector) semanticHits(ctx context.Context, claim *entities.Claim) ([]float32, []ports.ScoredClaim, error) {
	embedding, err := d.embedder.Embed(ctx, claim.Text())
	if err != nil {
		return nil, nil, fmt.Errorf("embedding claim: %w", err)
	}
	hits, err := d.index.SearchSimilar(ctx, embedding, semanticCandidateLimit, float32(d.semanticThreshold))
	if err != nil {
		return nil, nil, fmt.Errorf("searching claim index: %w", err)
	}
	return embedding, hits, nil
}

// Index adds a claim to the vector index. No-op when semantic search is off.
func (d *SimilarityDetector) Index(ctx context.Context, claim *entities.Claim, embedding []float32) error {
	if d.index == nil || d.embedder == nil {
		return nil
	}
	if embedding == nil {
		var err error
		embedding, err = d.embedder.Embed(ctx, claim.Text())
		if err != nil {
			return fmt.Errorf("embedding claim: %w", err)
		}
	}
	if err := d.index.Index(ctx, claim, embedding); err != nil {
		return fmt.Errorf("indexing claim: %w", err)
	}
	return nil
}

// Forget removes a claim from the vector index.
func (d *SimilarityDetector) Forget(ctx context.Context, claimID string) error {
	if d.index == nil {
		return nil
	}
	return d.index.Remove(ctx, claimID)
}

// NormalizeText lowercases s and collapses every run of non-alphanumeric
// characters to a single space.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokens returns the unique words of s after normalization.
func Tokens(s string) []string {
	fields := strings.Fields(NormalizeText(s))
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// SimilarityHash is the sorted unique title tokens joined by spaces,
// truncated on a rune boundary. Word order and punctuation do not affect it.
func SimilarityHash(title string) string {
	tokens := Tokens(title)
	sort.Strings(tokens)
	hash := strings.Join(tokens, " ")
	if len(hash) > similarityHashMaxLen {
		cut := similarityHashMaxLen
		for cut > 0 && !utf8.RuneStart(hash[cut]) {
			cut--
		}
		hash = strings.TrimSpace(hash[:cut])
	}
	return hash
}

// Similarity scores two claims in [0,1]: the best of word overlap on
// titles, trigram overlap on titles and word overlap on full text.
func Similarity(a, b *entities.Claim) float64 {
	best := jaccard(Tokens(a.Title), Tokens(b.Title))
	if s := jaccard(trigrams(a.Title), trigrams(b.Title)); s > best {
		best = s
	}
	if s := jaccard(Tokens(a.Text()), Tokens(b.Text())); s > best {
		best = s
	}
	return best
}

func trigrams(s string) []string {
	norm := NormalizeText(s)
	if norm == "" {
		return nil
	}
	padded := []rune("  " + norm + " ")
	out := make([]string, 0, len(padded))
	for i := 0; i+3 <= len(padded); i++ {
		out = append(out, string(padded[i:i+3]))
	}
	return out
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, x := range a {
		setA[x] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, x := range b {
		setB[x] = struct{}{}
	}
	inter := 0
	for x := range setA {
		if _, ok := setB[x]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}
