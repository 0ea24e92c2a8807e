// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score ranks corpus records by keyword relevance.
// Implements: prd006-scoring (R1, R2, R3);
//
//	docs/ARCHITECTURE § Relevance Scoring.
package score

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// scoreEpsilon is the smallest score change worth persisting.
const scoreEpsilon = 1e-6

// Default scoring parameters, applied when the config leaves them unset.
const (
	defaultAlpha           = 6.0
	defaultMinChars        = 800
	defaultQualityBonusCap = 0.25
	defaultMaxTextChars    = 200000
	defaultKeepThreshold   = 0.5
)

// Store is the record source and sink used by All.
type Store interface {
	Iterate(ctx context.Context, fn func(types.Paper) bool) error
	Upsert(ctx context.Context, paper types.Paper) error
}

// Summary holds counts from a scoring run (R3.3).
type Summary struct {
	Total   int
	Updated int
	Kept    int
}

// All scores every record in the store and persists rows whose score moved
// by more than epsilon or whose kept flag flipped (R3.1, R3.2). Kept counts
// records at or above the threshold after the run.
//
// Records are collected before any upsert runs; the store serializes on a
// single connection, so writes cannot proceed while an iterator holds it.
func All(ctx context.Context, store Store, cfg types.ScoringConfig, w io.Writer) (Summary, error) {
	cfg = applyDefaults(cfg)
	keywords := normalizeKeywords(cfg.Keywords)
	if len(keywords) == 0 {
		fmt.Fprintln(w, "no keywords configured; all scores will be zero")
	}

	var papers []types.Paper
	err := store.Iterate(ctx, func(p types.Paper) bool {
		papers = append(papers, p)
		return true
	})
	if err != nil {
		return Summary{}, fmt.Errorf("listing records: %w", err)
	}

	var summary Summary
	for _, p := range papers {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Total++

		score := ComputeScore(p, keywords, cfg)
		kept := score >= cfg.KeepThreshold
		if kept {
			summary.Kept++
		}

		if math.Abs(score-p.Score) <= scoreEpsilon && kept == p.Kept {
			continue
		}
		p.Score = score
		p.Kept = kept
		if err := store.Upsert(ctx, p); err != nil {
			return summary, fmt.Errorf("saving %s: %w", p.ID, err)
		}
		summary.Updated++
	}

	fmt.Fprintf(w, "Scoring summary: %d scored, %d updated, %d kept (threshold %.2f)\n",
		summary.Total, summary.Updated, summary.Kept, cfg.KeepThreshold)
	return summary, nil
}

// ComputeScore returns the relevance score in [0, 1] for one record (R1.1).
// Keyword hits in the title, the abstract recovered from source metadata,
// and the extracted text are weighted and squashed through 1-exp(-raw/alpha);
// long extracted text earns a capped quality bonus (R1.4).
func ComputeScore(paper types.Paper, keywords []string, cfg types.ScoringConfig) float64 {
	cfg = applyDefaults(cfg)

	title := strings.TrimSpace(paper.Title)
	abstract := abstractFromMeta(paper.Meta)
	text := readTextCapped(paper.TextPath, cfg.MaxTextChars)

	var hitsTitle, hitsAbstract, hitsText int
	for _, kw := range keywords {
		hitsTitle += countPhrase(title, kw)
		hitsAbstract += countPhrase(abstract, kw)
		hitsText += countPhrase(text, kw)
	}

	raw := cfg.TitleWeight*float64(hitsTitle) +
		cfg.AbstractWeight*float64(hitsAbstract) +
		cfg.TextWeight*float64(hitsText)

	var bonus float64
	if text != "" {
		bonus = float64(len(text)-cfg.MinChars) / float64(5*cfg.MinChars)
		if bonus < 0 {
			bonus = 0
		}
		if bonus > cfg.QualityBonusCap {
			bonus = cfg.QualityBonusCap
		}
	}

	base := 1.0 - math.Exp(-raw/math.Max(cfg.Alpha, 1e-6))
	return math.Max(0.0, math.Min(1.0, base+bonus))
}

// normalizeKeywords lowercases and trims keywords, dropping blanks and
// duplicates while keeping the configured order (R1.2).
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	var out []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

var simpleWord = regexp.MustCompile(`^[\w-]+$`)

// countPhrase counts case-insensitive occurrences of phrase in text (R1.3).
// Single words match on word boundaries so "carbon" does not count inside
// "carbonate"; multi-word phrases count as plain substrings.
func countPhrase(text, phrase string) int {
	if text == "" || phrase == "" {
		return 0
	}
	textL := strings.ToLower(text)
	phraseL := strings.ToLower(phrase)

	if simpleWord.MatchString(phraseL) {
		pat := regexp.MustCompile(`\b` + regexp.QuoteMeta(phraseL) + `\b`)
		return len(pat.FindAllString(textL, -1))
	}
	return strings.Count(textL, phraseL)
}

// abstractFromMeta recovers the abstract from raw source metadata: the
// OpenAlex inverted index when present, otherwise a plain abstract field.
func abstractFromMeta(meta json.RawMessage) string {
	if len(meta) == 0 {
		return ""
	}

	var payload struct {
		AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
		Abstract              string           `json:"abstract"`
	}
	if err := json.Unmarshal(meta, &payload); err != nil {
		return ""
	}
	if len(payload.AbstractInvertedIndex) > 0 {
		return reconstructAbstract(payload.AbstractInvertedIndex)
	}
	return strings.TrimSpace(payload.Abstract)
}

// reconstructAbstract converts an inverted index back to plain text. The
// index maps each word to the list of positions where it appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].pos != pairs[j].pos {
			return pairs[i].pos < pairs[j].pos
		}
		return pairs[i].word < pairs[j].word
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// readTextCapped reads at most maxChars bytes of extracted text. Missing or
// unreadable files score as if no text was extracted.
func readTextCapped(path string, maxChars int) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(maxChars)))
	if err != nil {
		return ""
	}
	return string(data)
}

// applyDefaults fills unset scoring parameters. The field weights default as
// a set: when all three are zero the standard 3/2/1 weighting applies,
// otherwise explicit zeros are honored.
func applyDefaults(cfg types.ScoringConfig) types.ScoringConfig {
	if cfg.TitleWeight == 0 && cfg.AbstractWeight == 0 && cfg.TextWeight == 0 {
		cfg.TitleWeight = 3.0
		cfg.AbstractWeight = 2.0
		cfg.TextWeight = 1.0
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = defaultAlpha
	}
	if cfg.MinChars <= 0 {
		cfg.MinChars = defaultMinChars
	}
	if cfg.QualityBonusCap <= 0 {
		cfg.QualityBonusCap = defaultQualityBonusCap
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = defaultMaxTextChars
	}
	if cfg.KeepThreshold <= 0 {
		cfg.KeepThreshold = defaultKeepThreshold
	}
	return cfg
}
