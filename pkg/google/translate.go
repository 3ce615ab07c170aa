package google

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"
)

// Translator translates text with Cloud Translation (v2).
type Translator interface {
	Translate(ctx context.Context, text, target string) (string, error)
}

type translateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (c *httpClient) Translate(ctx context.Context, text, target string) (string, error) {
	var resp translateResponse
	err := c.do(ctx, "translate", http.MethodPost, c.ep.translate+"/language/translate/v2",
		translateRequest{Q: text, Target: target, Format: "text"}, &resp, nil)
	if err != nil {
		return "", err
	}
	if len(resp.Data.Translations) == 0 {
		return "", eris.New("google: translate returned no translations")
	}
	return resp.Data.Translations[0].TranslatedText, nil
}
