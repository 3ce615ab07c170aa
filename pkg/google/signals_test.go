package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPagespeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/pagespeedonline/v5/runPagespeed", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "https://clinica.example", q.Get("url"))
		assert.Equal(t, "mobile", q.Get("strategy"))
		assert.Equal(t, "PERFORMANCE", q.Get("category"))
		assert.Equal(t, "pt-BR", q.Get("locale"))

		_, _ = w.Write([]byte(`{
			"lighthouseResult": {
				"categories": {"performance": {"score": 0.42}},
				"audits": {
					"largest-contentful-paint": {"displayValue": "7,1 s"},
					"final-screenshot": {"details": {"data": "data:image/jpeg;base64,QUJD"}}
				}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.RunPagespeed(context.Background(), "https://clinica.example")
	require.NoError(t, err)

	score, ok := resp.PerformanceScore()
	assert.True(t, ok)
	assert.Equal(t, 42, score)
	assert.Equal(t, "7,1 s", resp.LCPDisplay())
	assert.Equal(t, "data:image/jpeg;base64,QUJD", resp.Screenshot())
}

func TestPagespeedResponse_MissingScore(t *testing.T) {
	var resp PagespeedResponse
	require.NoError(t, json.Unmarshal([]byte(`{"lighthouseResult":{"categories":{"performance":{"score":null}}}}`), &resp))

	_, ok := resp.PerformanceScore()
	assert.False(t, ok)
	assert.Empty(t, resp.LCPDisplay())
	assert.Empty(t, resp.Screenshot())

	_, ok = (&PagespeedResponse{}).PerformanceScore()
	assert.False(t, ok)
}

func TestFindThreatMatches(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		matches int
	}{
		{name: "clean", body: `{}`, matches: 0},
		{name: "flagged", body: `{"matches":[{"threatType":"MALWARE","platformType":"ANY_PLATFORM","threat":{"url":"https://bad.example"}}]}`, matches: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v4/threatMatches:find", r.URL.Path)
				var body threatMatchesRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.ElementsMatch(t, []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"}, body.ThreatInfo.ThreatTypes)
				require.Len(t, body.ThreatInfo.ThreatEntries, 1)
				assert.Equal(t, "https://bad.example", body.ThreatInfo.ThreatEntries[0].URL)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("k", WithBaseURL(srv.URL))
			resp, err := client.FindThreatMatches(context.Background(), "https://bad.example")
			require.NoError(t, err)
			assert.Len(t, resp.Matches, tt.matches)
		})
	}
}

func TestAnnotate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images:annotate", r.URL.Path)
		var body annotateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Requests, 1)
		assert.Equal(t, "QUJD", body.Requests[0].Image.Content)
		require.Len(t, body.Requests[0].Features, 2)
		assert.Equal(t, "LABEL_DETECTION", body.Requests[0].Features[0].Type)
		assert.Equal(t, 5, body.Requests[0].Features[0].MaxResults)
		assert.Equal(t, "TEXT_DETECTION", body.Requests[0].Features[1].Type)

		_, _ = w.Write([]byte(`{"responses":[{
			"labelAnnotations":[{"description":"Logo","score":0.9},{"description":"","score":0.1},{"description":"Font","score":0.8}],
			"fullTextAnnotation":{"text":"Agende sua consulta"}
		}]}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	res, err := client.Annotate(context.Background(), "data:image/jpeg;base64,QUJD")
	require.NoError(t, err)
	assert.Equal(t, []string{"Logo", "Font"}, res.Labels)
	assert.Equal(t, "Agende sua consulta", res.Text)
}

func TestAnnotate_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "no responses", body: `{"responses":[]}`, want: "no responses"},
		{name: "per-image error", body: `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`, want: "Bad image data."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("k", WithBaseURL(srv.URL))
			_, err := client.Annotate(context.Background(), "QUJD")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStripDataURL(t *testing.T) {
	assert.Equal(t, "QUJD", StripDataURL("data:image/png;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURL("data:image/webp;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURL("QUJD"))
}

func TestAnalyzeSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/documents:analyzeSentiment", r.URL.Path)
		var body sentimentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PLAIN_TEXT", body.Document.Type)
		assert.Equal(t, "Atendimento excelente", body.Document.Content)
		_, _ = w.Write([]byte(`{"documentSentiment":{"score":0.7,"magnitude":1.2},"language":"pt"}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.AnalyzeSentiment(context.Background(), "Atendimento excelente")
	require.NoError(t, err)
	require.NotNil(t, resp.DocumentSentiment)
	assert.InDelta(t, 0.7, resp.DocumentSentiment.Score, 0.001)
	assert.InDelta(t, 1.2, resp.DocumentSentiment.Magnitude, 0.001)
	assert.Equal(t, "pt", resp.Language)
}

func TestQueryRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/records:queryRecord", r.URL.Path)
		var body cruxRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "PHONE", body.FormFactor)
		_, _ = w.Write([]byte(`{"record":{"metrics":{
			"largest_contentful_paint":{"percentiles":{"p75":3120}},
			"cumulative_layout_shift":{"percentiles":{"p75":"0.08"}}
		}}}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.QueryRecord(context.Background(), "https://clinica.example")
	require.NoError(t, err)

	lcp, ok := resp.P75("largest_contentful_paint")
	assert.True(t, ok)
	assert.Equal(t, "3120", lcp)

	cls, ok := resp.P75("cumulative_layout_shift")
	assert.True(t, ok)
	assert.Equal(t, "0.08", cls)

	_, ok = resp.P75("interaction_to_next_paint")
	assert.False(t, ok)
}

func TestQueryRecord_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"chrome ux report data not found"}}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.QueryRecord(context.Background(), "https://tiny.example")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/language/translate/v2", r.URL.Path)
		var body translateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pt", body.Target)
		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Olá"}]}}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	out, err := client.Translate(context.Background(), "Hello", "pt")
	require.NoError(t, err)
	assert.Equal(t, "Olá", out)
}

func TestTranslate_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"translations":[]}}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	_, err := client.Translate(context.Background(), "Hello", "pt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no translations")
}
