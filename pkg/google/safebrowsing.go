package google

import (
	"context"
	"net/http"
)

// SafeBrowsing checks URLs against the Safe Browsing threat lists.
type SafeBrowsing interface {
	FindThreatMatches(ctx context.Context, targetURL string) (*ThreatMatchesResponse, error)
}

// ThreatMatchesResponse is empty ({}) when no threat is found.
type ThreatMatchesResponse struct {
	Matches []ThreatMatch `json:"matches"`
}

// ThreatMatch is one list hit.
type ThreatMatch struct {
	ThreatType   string      `json:"threatType"`
	PlatformType string      `json:"platformType"`
	Threat       ThreatEntry `json:"threat"`
}

// ThreatEntry identifies the matched resource.
type ThreatEntry struct {
	URL string `json:"url"`
}

type threatMatchesRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []ThreatEntry `json:"threatEntries"`
}

func (c *httpClient) FindThreatMatches(ctx context.Context, targetURL string) (*ThreatMatchesResponse, error) {
	req := threatMatchesRequest{
		Client: clientInfo{ClientID: "practice-audit", ClientVersion: "1.0.0"},
		ThreatInfo: threatInfo{
			ThreatTypes:      []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"},
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    []ThreatEntry{{URL: targetURL}},
		},
	}

	var result ThreatMatchesResponse
	if err := c.do(ctx, "safebrowsing", http.MethodPost, c.ep.safeBrowsing+"/v4/threatMatches:find", req, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}
