package google

import (
	"context"
	"net/http"
)

// Language runs Natural Language document analysis.
type Language interface {
	AnalyzeSentiment(ctx context.Context, text string) (*SentimentResponse, error)
}

// SentimentResponse is the analyzeSentiment response. DocumentSentiment is
// nil when the API returned none.
type SentimentResponse struct {
	DocumentSentiment *DocumentSentiment `json:"documentSentiment"`
	Language          string             `json:"language"`
}

// DocumentSentiment holds the overall score (-1..1) and magnitude (>= 0).
type DocumentSentiment struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
}

type sentimentRequest struct {
	Document     document `json:"document"`
	EncodingType string   `json:"encodingType"`
}

type document struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (c *httpClient) AnalyzeSentiment(ctx context.Context, text string) (*SentimentResponse, error) {
	req := sentimentRequest{
		Document:     document{Type: "PLAIN_TEXT", Content: text},
		EncodingType: "UTF8",
	}

	var result SentimentResponse
	if err := c.do(ctx, "language", http.MethodPost, c.ep.language+"/v1/documents:analyzeSentiment", req, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}
