package rag

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/akolanti/OfflineRAG/internal/config"
	"github.com/akolanti/OfflineRAG/internal/domain/commonModels"
	"github.com/akolanti/OfflineRAG/internal/metrics"
	"github.com/akolanti/OfflineRAG/internal/rag/index"
)

// RetrievalResult carries what the generation layer needs: the surviving
// candidates, the graph neighborhood rendered as text, and whether the query
// named a specific document.
type RetrievalResult struct {
	Candidates   []commonModels.Candidate
	GraphContext string
	Targeted     bool
	TargetName   string
}

// Matches "in report.pdf", "from the notes.txt" style references. Filenames
// with spaces are not matched - the index lookup would be ambiguous anyway.
var fileReferencePattern = regexp.MustCompile(`(?i)(?:in|from|of|within|inside|about)\s+(?:the\s+)?(?:file\s+|document\s+)?["']?([^\s"']+\.(?:pdf|docx|txt|csv))["']?`)

// Search runs the retrieval pipeline:
//
//	embed -> (targeted scan | block shortlist) -> chunk search
//	      -> keyword override -> margin cut -> freshness order -> graph context
//
// Block-level relevance gating only applies to the shortlist path; when the
// user names a file, every block of that file is fair game.
func (e *Engine) Search(ctx context.Context, query string) (RetrievalResult, error) {
	queryVector, err := e.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return RetrievalResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return RetrievalResult{}, ErrEngineNotReady
	}
	if e.store.BlockCount() == 0 {
		return RetrievalResult{}, nil
	}

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_search", time.Since(start)) }()

	result := RetrievalResult{}
	var blockMatches []index.BlockMatch

	if name, ok := e.targetDocument(query); ok {
		result.Targeted = true
		result.TargetName = name
		blockMatches, err = e.store.ScanBlocksByName(queryVector, name)
		if err != nil {
			return RetrievalResult{}, err
		}
		if len(blockMatches) > config.TopKBlocks {
			blockMatches = blockMatches[:config.TopKBlocks]
		}
	} else {
		blockMatches, err = e.store.SearchBlocks(queryVector, config.TopKBlocks)
		if err != nil {
			return RetrievalResult{}, err
		}
		blockMatches = applyBlockThreshold(blockMatches)
	}
	if len(blockMatches) == 0 {
		return result, nil
	}

	blockIds := make([]string, len(blockMatches))
	for i, m := range blockMatches {
		blockIds[i] = m.Meta.BlockId
	}

	candidates, err := e.store.SearchChunks(queryVector, blockIds, config.TopKChunks)
	if err != nil {
		return RetrievalResult{}, err
	}

	markKeywordMatches(query, candidates)
	candidates = applyScoreMargin(candidates)
	orderByFreshness(candidates)
	if len(candidates) > config.TopKChunks {
		candidates = candidates[:config.TopKChunks]
	}
	result.Candidates = candidates
	metrics.CaptureRetrievalCandidates(len(candidates))

	// Graph context only helps when results may span documents; a targeted
	// query already pinned the scope.
	if !result.Targeted {
		result.GraphContext = e.graph.ContextualSubgraph(blockIds)
	}
	return result, nil
}

func (e *Engine) targetDocument(query string) (string, bool) {
	m := fileReferencePattern.FindStringSubmatch(query)
	if m == nil {
		return "", false
	}
	name := m[1]
	if !e.store.HasDocumentNamed(name) {
		return "", false
	}
	return name, true
}

// applyBlockThreshold keeps blocks under the distance ceiling. When nothing
// qualifies the shortlist is returned as-is: downstream keyword matching can
// still rescue a lexically obvious answer, and the refusal check catches the
// rest.
func applyBlockThreshold(matches []index.BlockMatch) []index.BlockMatch {
	kept := make([]index.BlockMatch, 0, len(matches))
	for _, m := range matches {
		if m.Score <= config.ScoreThreshold {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return matches
	}
	return kept
}

// markKeywordMatches flags candidates containing most of the query's
// meaningful words. Embedding distance misses exact identifiers (part
// numbers, codenames); lexical overlap rescues those.
func markKeywordMatches(query string, candidates []commonModels.Candidate) {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, `.,;:!?"'()`)
		if len(w) > config.MinKeywordLength {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return
	}

	for i := range candidates {
		text := strings.ToLower(candidates[i].Text)
		hits := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				hits++
			}
		}
		if float64(hits)/float64(len(words)) >= config.KeywordMatchRatio {
			candidates[i].KeywordMatch = true
		}
	}
}

// applyScoreMargin cuts the tail of candidates scoring worse than the best
// by more than the margin. Keyword matches are exempt - lexical evidence
// outranks embedding distance.
func applyScoreMargin(candidates []commonModels.Candidate) []commonModels.Candidate {
	if len(candidates) == 0 {
		return candidates
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].Score < candidates[b].Score })

	cutoff := candidates[0].Score * config.ScoreMargin
	kept := candidates[:0]
	for _, c := range candidates {
		if c.KeywordMatch || c.Score <= cutoff {
			kept = append(kept, c)
		}
	}
	return kept
}

// orderByFreshness prefers newer documents when scores already agreed the
// candidates are relevant. Stable sort keeps score order within equal times.
func orderByFreshness(candidates []commonModels.Candidate) {
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].CreatedAt.After(candidates[b].CreatedAt)
	})
}
