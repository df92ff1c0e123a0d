package processor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"doc-triage/internal/models"
)

// DefaultLineTolerance is the vertical band, in page units, that words must share to form a line
const DefaultLineTolerance = 5.0

// ErrNonFinitePosition is returned for words whose coordinates are NaN or infinite
var ErrNonFinitePosition = errors.New("non-finite word position")

// GroupLines clusters words into lines by quantizing their top coordinate to a
// multiple of tolerance. Lines are returned top-to-bottom and words within a
// line left-to-right. Words with equal X0 keep their input order.
// A word with a NaN or infinite coordinate fails the whole call with ErrNonFinitePosition.
func GroupLines(words []models.PositionedWord, tolerance float64) ([]models.TextLine, error) {
	if tolerance <= 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		return nil, &models.ConfigError{Field: "line_tolerance", Message: "must be a positive finite number"}
	}
	if len(words) == 0 {
		return nil, nil
	}

	rows := make(map[float64][]models.PositionedWord)
	for i, w := range words {
		if !isFinite(w.Top) || !isFinite(w.X0) {
			return nil, fmt.Errorf("word %d %q at (%v, %v): %w", i, w.Text, w.X0, w.Top, ErrNonFinitePosition)
		}
		key := rowKey(w.Top, tolerance)
		rows[key] = append(rows[key], w)
	}

	keys := make([]float64, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	lines := make([]models.TextLine, 0, len(keys))
	for _, key := range keys {
		row := rows[key]
		sort.SliceStable(row, func(i, j int) bool { return row[i].X0 < row[j].X0 })

		texts := make([]string, len(row))
		for i, w := range row {
			texts[i] = w.Text
		}

		lines = append(lines, models.TextLine{
			Words:    row,
			Top:      key,
			Text:     strings.Join(texts, " "),
			FontSize: row[0].FontSize,
		})
	}

	return lines, nil
}

// rowKey rounds half to even so that bands match banker's rounding.
func rowKey(top, tolerance float64) float64 {
	return math.RoundToEven(top/tolerance) * tolerance
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
