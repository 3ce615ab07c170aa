package model

// Category names one kind of external signal.
type Category string

// Signal categories collected for every audit.
const (
	CategoryPerformance Category = "performance"
	CategorySecurity    Category = "security"
	CategoryVision      Category = "branding_vision"
	CategorySentiment   Category = "branding_text"
	CategoryMarket      Category = "market"
	CategoryFieldData   Category = "field_data"
)

// Signal is one fetched datum. IsFallback is set by the collector whenever the
// value did not come from a successful live call.
type Signal[T any] struct {
	Source     Category `json:"source" yaml:"source"`
	Value      T        `json:"value" yaml:"value"`
	IsFallback bool     `json:"is_fallback" yaml:"is_fallback"`
	Note       string   `json:"note,omitempty" yaml:"note,omitempty"`
}

// Live wraps a value obtained from a successful upstream call.
func Live[T any](source Category, v T) Signal[T] {
	return Signal[T]{Source: source, Value: v}
}

// Fallback wraps a predetermined substitute value.
func Fallback[T any](source Category, v T, note string) Signal[T] {
	return Signal[T]{Source: source, Value: v, IsFallback: true, Note: note}
}

// Performance is the site-performance signal.
type Performance struct {
	Score           int    `json:"score" yaml:"score"`
	LoadTimeDisplay string `json:"load_time_display" yaml:"load_time_display"`
	Screenshot      string `json:"-" yaml:"-"`
}

// HasScreenshot reports whether a screenshot was captured.
func (p Performance) HasScreenshot() bool {
	return p.Screenshot != ""
}

// SecurityLevel is the coarse security verdict.
type SecurityLevel string

// Security verdict levels.
const (
	SecuritySafe   SecurityLevel = "safe"
	SecurityWarn   SecurityLevel = "warn"
	SecurityDanger SecurityLevel = "danger"
)

// Security is the security-posture signal.
type Security struct {
	Level  SecurityLevel `json:"level" yaml:"level"`
	Detail string        `json:"detail" yaml:"detail"`
}

// Competitor is one nearby listing from the places search.
type Competitor struct {
	Name        string  `json:"name" yaml:"name"`
	Rating      float64 `json:"rating" yaml:"rating"`
	ReviewCount int     `json:"review_count" yaml:"review_count"`
}

// Vision holds labels detected on the site screenshot and any text read from it.
type Vision struct {
	Labels  []string `json:"labels" yaml:"labels"`
	OCRText string   `json:"ocr_text,omitempty" yaml:"ocr_text,omitempty"`
}

// Sentiment is the tone of the site's copy.
type Sentiment struct {
	Score     float64 `json:"score" yaml:"score"`
	Magnitude float64 `json:"magnitude" yaml:"magnitude"`
}

// FieldData is the real-user (CrUX) experience record for the site.
type FieldData struct {
	HasData     bool    `json:"has_data" yaml:"has_data"`
	LCPP75Milli float64 `json:"lcp_p75_ms,omitempty" yaml:"lcp_p75_ms,omitempty"`
	CLSP75      string  `json:"cls_p75,omitempty" yaml:"cls_p75,omitempty"`
}

// CollectionContext holds every signal gathered for one audit run. It is
// built once and passed by value; nothing mutates it after collection.
type CollectionContext struct {
	Performance Signal[Performance]  `json:"performance" yaml:"performance"`
	Security    Signal[Security]     `json:"security" yaml:"security"`
	Vision      Signal[Vision]       `json:"branding_vision" yaml:"branding_vision"`
	Sentiment   Signal[Sentiment]    `json:"branding_text" yaml:"branding_text"`
	Market      Signal[[]Competitor] `json:"market" yaml:"market"`
	FieldData   Signal[FieldData]    `json:"field_data" yaml:"field_data"`
}

// Degraded lists the categories that carry fallback values.
func (c CollectionContext) Degraded() []Category {
	var out []Category
	for _, s := range []struct {
		cat Category
		fb  bool
	}{
		{CategoryPerformance, c.Performance.IsFallback},
		{CategorySecurity, c.Security.IsFallback},
		{CategoryVision, c.Vision.IsFallback},
		{CategorySentiment, c.Sentiment.IsFallback},
		{CategoryMarket, c.Market.IsFallback},
		{CategoryFieldData, c.FieldData.IsFallback},
	} {
		if s.fb {
			out = append(out, s.cat)
		}
	}
	return out
}
