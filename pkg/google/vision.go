package google

import (
	"context"
	"net/http"
	"regexp"

	"github.com/rotisserie/eris"
)

// Vision annotates images with Cloud Vision.
type Vision interface {
	Annotate(ctx context.Context, image string) (*AnnotateResult, error)
}

// AnnotateResult holds labels and any text detected in the image.
type AnnotateResult struct {
	Labels []string
	Text   string
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    imageContent `json:"image"`
	Features []feature    `json:"features"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type annotateResponse struct {
	Responses []imageResponse `json:"responses"`
}

type imageResponse struct {
	LabelAnnotations   []entityAnnotation `json:"labelAnnotations"`
	FullTextAnnotation *textAnnotation    `json:"fullTextAnnotation"`
	Error              *apiStatus         `json:"error"`
}

type entityAnnotation struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type textAnnotation struct {
	Text string `json:"text"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var dataURLPrefix = regexp.MustCompile(`^data:image/(png|jpeg|jpg|webp);base64,`)

// StripDataURL removes a data-URL header from a base64 image, if present.
func StripDataURL(image string) string {
	return dataURLPrefix.ReplaceAllString(image, "")
}

func (c *httpClient) Annotate(ctx context.Context, image string) (*AnnotateResult, error) {
	req := annotateRequest{
		Requests: []imageRequest{{
			Image: imageContent{Content: StripDataURL(image)},
			Features: []feature{
				{Type: "LABEL_DETECTION", MaxResults: 5},
				{Type: "TEXT_DETECTION", MaxResults: 1},
			},
		}},
	}

	var resp annotateResponse
	if err := c.do(ctx, "vision", http.MethodPost, c.ep.vision+"/v1/images:annotate", req, &resp, nil); err != nil {
		return nil, err
	}
	if len(resp.Responses) == 0 {
		return nil, eris.New("google: vision returned no responses")
	}

	first := resp.Responses[0]
	if first.Error != nil {
		return nil, eris.Errorf("google: vision annotate error %d: %s", first.Error.Code, first.Error.Message)
	}

	result := &AnnotateResult{}
	for _, l := range first.LabelAnnotations {
		if l.Description != "" {
			result.Labels = append(result.Labels, l.Description)
		}
	}
	if first.FullTextAnnotation != nil {
		result.Text = first.FullTextAnnotation.Text
	}
	return result, nil
}
