package models

// PositionedWord is a single token on a page as reported by a document source
type PositionedWord struct {
	Text     string  `json:"text"`
	X0       float64 `json:"x0"`
	Top      float64 `json:"top"`
	FontSize float64 `json:"size"`
}

// TextLine is a run of words that share a quantized vertical band
type TextLine struct {
	Words    []PositionedWord `json:"words"`
	Top      float64          `json:"top"`
	Text     string           `json:"text"`
	FontSize float64          `json:"font_size"`
}

// SectionCandidate represents one rankable unit of content extracted from a document
type SectionCandidate struct {
	Document   string  `json:"document"`
	PageNumber int     `json:"page_number"`
	Title      string  `json:"section_title"`
	Text       string  `json:"text"`
	FontSize   float64 `json:"font_size"`
}

// ScoredSection pairs a candidate with its relevance score.
// Order is the candidate's position in the extractor output and is the tie-breaker.
type ScoredSection struct {
	Section SectionCandidate `json:"section"`
	Score   float64          `json:"score"`
	Order   int              `json:"order"`
}

// RankedResult is a scored section inside the selected top-K slice
type RankedResult struct {
	ScoredSection
	Rank int `json:"rank"`
}

// RefinedSection contains the condensed text for a ranked section
type RefinedSection struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// Metadata describes the inputs of a report
type Metadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

// ExtractedSection is the report entry for a ranked section
type ExtractedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

// Report is the final output of a triage run
type Report struct {
	Metadata           Metadata           `json:"metadata"`
	ExtractedSections  []ExtractedSection `json:"extracted_sections"`
	SubsectionAnalysis []RefinedSection   `json:"subsection_analysis"`
}
