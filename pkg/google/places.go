package google

import (
	"context"
	"net/http"
)

// Places performs Google Places (New) text searches.
type Places interface {
	TextSearch(ctx context.Context, query string, maxResults int) (*TextSearchResponse, error)
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	DisplayName     DisplayName `json:"displayName"`
	Rating          float64     `json:"rating"`
	UserRatingCount int         `json:"userRatingCount"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

type textSearchRequest struct {
	TextQuery      string `json:"textQuery"`
	MaxResultCount int    `json:"maxResultCount,omitempty"`
}

const placesFieldMask = "places.displayName,places.rating,places.userRatingCount"

func (c *httpClient) TextSearch(ctx context.Context, query string, maxResults int) (*TextSearchResponse, error) {
	var result TextSearchResponse
	err := c.do(ctx, "places", http.MethodPost, c.ep.places+"/v1/places:searchText",
		textSearchRequest{TextQuery: query, MaxResultCount: maxResults},
		&result,
		map[string]string{"X-Goog-FieldMask": placesFieldMask},
	)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
