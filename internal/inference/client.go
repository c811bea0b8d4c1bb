// Package inference calls the external sentiment-classification service and
// normalizes its label vocabulary and score vector into the canonical
// three-label format.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/nikhilgowda/feedpulse/pkg/models"
)

// DefaultTimeout bounds the transport layer. The analyzer enforces its own,
// tighter budget; this cap exists so an abandoned call cannot hold a
// connection open indefinitely.
const DefaultTimeout = 30 * time.Second

// LabelScore is one entry of the raw score vector as returned by the service.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Result is a normalized classification: canonical sentiment, its score, the
// three-label distribution in fixed negative/neutral/positive order, and the
// normalized raw vector for inspection.
type Result struct {
	Sentiment  string
	Confidence float64
	AllScores  []models.ScoreEntry
	Raw        []LabelScore
}

// Client is the interface for sentiment classification.
type Client interface {
	Classify(ctx context.Context, text string) (*Result, error)
	Name() string
}

// labelMap is the closed mapping from external vocabularies onto the
// canonical labels. Keys are compared lower-cased.
var labelMap = map[string]string{
	"positive": models.SentimentPositive,
	"neutral":  models.SentimentNeutral,
	"negative": models.SentimentNegative,
	"pos":      models.SentimentPositive,
	"neu":      models.SentimentNeutral,
	"neg":      models.SentimentNegative,
	"label_2":  models.SentimentPositive,
	"label_1":  models.SentimentNeutral,
	"label_0":  models.SentimentNegative,
}

// canonicalLabel maps an external label onto the canonical vocabulary.
// Unmapped labels pass through lower-cased so a new upstream vocabulary shows
// up in logs instead of silently vanishing.
func canonicalLabel(external string) string {
	key := strings.ToLower(external)
	if mapped, ok := labelMap[key]; ok {
		return mapped
	}
	slog.Warn("unmapped sentiment label from inference service", "label", external)
	return key
}

// HTTPClient implements Client against a HuggingFace-style inference
// endpoint: POST {"inputs": text} returning [[{"label","score"}, ...]].
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a sentiment service client. A zero timeout falls back
// to DefaultTimeout.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Name() string { return "http" }

func (c *HTTPClient) Classify(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp.StatusCode, resp.Body)
	}

	raw, err := decodeScores(resp.Body)
	if err != nil {
		return nil, &Error{Op: "classify", Retryable: false, Err: err}
	}

	return Normalize(raw)
}

// decodeScores accepts both the nested [[{...}]] and the flat [{...}] shapes.
func decodeScores(r io.Reader) ([]LabelScore, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var nested [][]LabelScore
	if err := json.Unmarshal(data, &nested); err == nil && len(nested) > 0 {
		return nested[0], nil
	}

	var flat []LabelScore
	if err := json.Unmarshal(data, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidResponse, truncate(string(data), 200))
}

// Normalize renormalizes the raw vector to sum 1.0, selects the top-scoring
// label with a first-max tie-break over the original order, and presents the
// three canonical scores in fixed negative/neutral/positive order.
func Normalize(raw []LabelScore) (*Result, error) {
	if len(raw) == 0 {
		return nil, &Error{Op: "classify", Retryable: false, Err: ErrInvalidResponse}
	}

	var sum float64
	for _, ls := range raw {
		if ls.Score < 0 {
			return nil, &Error{Op: "classify", Retryable: false,
				Err: fmt.Errorf("%w: negative score for %q", ErrInvalidResponse, ls.Label)}
		}
		sum += ls.Score
	}
	if sum == 0 {
		return nil, &Error{Op: "classify", Retryable: false,
			Err: fmt.Errorf("%w: all scores zero", ErrInvalidResponse)}
	}

	normalized := make([]LabelScore, len(raw))
	buckets := map[string]float64{
		models.SentimentNegative: 0,
		models.SentimentNeutral:  0,
		models.SentimentPositive: 0,
	}

	best := 0
	for i, ls := range raw {
		score := ls.Score / sum
		label := canonicalLabel(ls.Label)
		normalized[i] = LabelScore{Label: label, Score: score}
		if _, ok := buckets[label]; ok {
			buckets[label] += score
		}
		if ls.Score > raw[best].Score {
			best = i
		}
	}

	sentiment := normalized[best].Label
	if _, ok := buckets[sentiment]; !ok {
		// Top label fell outside the canonical vocabulary entirely.
		return nil, &Error{Op: "classify", Retryable: false,
			Err: fmt.Errorf("%w: unknown top label %q", ErrInvalidResponse, sentiment)}
	}

	allScores := make([]models.ScoreEntry, 0, len(models.CanonicalLabels))
	for _, label := range models.CanonicalLabels {
		score := round3(buckets[label])
		allScores = append(allScores, models.ScoreEntry{
			Label:      label,
			Score:      score,
			Percentage: math.Round(score*1000) / 10,
		})
	}

	return &Result{
		Sentiment:  sentiment,
		Confidence: round3(buckets[sentiment]),
		AllScores:  allScores,
		Raw:        normalized,
	}, nil
}

// classifyTransportError maps transport failures to retryable/non-retryable.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Op: "classify", Retryable: true, Err: fmt.Errorf("%w: %v", ErrInferenceTimeout, err)}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Op: "classify", Retryable: true, Err: fmt.Errorf("%w: %v", ErrInferenceTimeout, err)}
	}

	return &Error{Op: "classify", Retryable: true, Err: fmt.Errorf("%w: %v", ErrServiceUnavailable, err)}
}

func classifyStatusError(status int, body io.Reader) error {
	snippet, _ := io.ReadAll(io.LimitReader(body, 200))
	err := fmt.Errorf("%w: %s", ErrRequestRejected, strings.TrimSpace(string(snippet)))
	return &Error{
		Op:        "classify",
		Status:    status,
		Retryable: status >= 500,
		Err:       err,
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
