package models

import "time"

// Canonical sentiment labels. Every classifier output is normalized onto
// exactly these three.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// CanonicalLabels is the fixed presentation order for score vectors.
var CanonicalLabels = []string{SentimentNegative, SentimentNeutral, SentimentPositive}

// Result sources recorded in metadata.
const (
	SourceAI       = "ai-analysis"
	SourceFallback = "fallback-analysis"
)

// ScoreEntry is one label's share of the normalized score distribution.
type ScoreEntry struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Percentage float64 `json:"percentage"`
}

// ResultMetadata carries provenance and simple text metrics.
type ResultMetadata struct {
	Source    string `json:"source"`
	WordCount int    `json:"wordCount"`
	CharCount int    `json:"charCount"`
}

// AnalysisResult is the outcome of classifying one feedback text.
// AllScores always covers exactly the three canonical labels and sums to 1.0;
// Confidence equals the score of the chosen Sentiment.
type AnalysisResult struct {
	JobID       string         `json:"jobId"`
	Sentiment   string         `json:"sentiment"`
	Confidence  float64        `json:"confidence"`
	AllScores   []ScoreEntry   `json:"allScores"`
	Intents     []string       `json:"intents"`
	AIProcessed bool           `json:"aiProcessed"`
	ProcessedAt time.Time      `json:"processedAt"`
	Metadata    ResultMetadata `json:"metadata"`
}

// StoredResult is the persisted record: the analysis result plus the
// submitting user and the original text. JobID is the unique key.
type StoredResult struct {
	AnalysisResult
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

// SentimentStat aggregates stored results for one sentiment label.
type SentimentStat struct {
	Count         int     `json:"count"`
	Percentage    float64 `json:"percentage"`
	AvgConfidence float64 `json:"avgConfidence"`
}
