package llm

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"doc-triage/internal/embedding"
	"doc-triage/internal/textutil"
)

// FrequencySummarizer is an extractive summarizer. It ranks sentences by
// normalised word frequency and keeps the best ones that fit in maxLength,
// in their original order.
type FrequencySummarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
	Stats           *Stats
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer(stats *Stats) *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern:    regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
		sentencePattern: regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`),
		stopwords:       embedding.Stopwords(),
		Stats:           stats,
	}
}

func (s *FrequencySummarizer) Summarize(_ context.Context, text string, maxLength, minLength int) (string, error) {
	start := time.Now()
	defer func() { s.Stats.Record(time.Since(start).Milliseconds(), nil) }()

	var sentences []string
	for _, sent := range s.sentencePattern.FindAllString(text, -1) {
		if sent = strings.TrimSpace(sent); sent != "" {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) == 0 {
		return "", nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, sent := range sentences {
		toks := s.tokens(sent)
		total := 0.0
		for _, tok := range toks {
			total += freq[tok]
		}
		// Normalise by length so long sentences are not favoured
		if len(toks) > 0 {
			total /= math.Sqrt(float64(len(toks)))
		}
		scores[i] = scored{i, total}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	var selected []int
	used := 0
	for _, sc := range scores {
		n := textutil.RuneLen(sentences[sc.idx])
		if len(selected) > 0 {
			n++ // joining space
		}
		if used+n > maxLength {
			continue
		}
		selected = append(selected, sc.idx)
		used += n
	}

	// Nothing fits whole: clip the best sentence.
	if len(selected) == 0 {
		return textutil.Truncate(sentences[scores[0].idx], maxLength), nil
	}

	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

func (s *FrequencySummarizer) tokens(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := s.stopwords[t]; !isStop {
			out = append(out, t)
		}
	}
	return out
}
