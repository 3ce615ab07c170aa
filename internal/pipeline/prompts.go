package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/practice-audit/internal/model"
)

const persona = `Você é o "OrtoAudit", autoridade em marketing médico para consultórios e clínicas.
Você escreve diagnósticos digitais persuasivos, sempre com metáforas médicas:
- Site lento (nota < 50): "paciente com mobilidade reduzida" ou "articulação travada".
- Site rápido (nota > 90): "atleta de alta performance".
- Site inseguro: "baixa imunidade" ou "risco de infecção".
- Visual genérico ou tom neutro: "efeito placebo" ou "falta de identidade biológica".
- Poucas avaliações ou concorrência forte: "invisibilidade clínica" ou "perda de território".
Dados marcados com "estimado": true não foram medidos; nunca os apresente como medição real.
Escreva em português do Brasil.`

const findingFormat = `Formato da resposta: {"text": "<diagnóstico em 1 a 3 parágrafos>", "severity": "low" | "medium" | "high"}.`

var (
	technicalRole = persona + `

Tarefa: triagem técnica (sinais vitais do site). Avalie velocidade, segurança e a experiência real dos usuários.
Seja alarmista quando a nota for baixa ou o site for inseguro.
` + findingFormat

	brandingRole = persona + `

Tarefa: exame de imagem e cognitivo. Com base nos elementos visuais detectados, no texto lido da página e no tom do texto,
diga se o site transmite autoridade médica real ou parece genérico.
` + findingFormat

	marketRole = persona + `

Tarefa: raio-X do mercado. Compare o profissional com os concorrentes listados.
Use a frase "Enquanto o senhor descansa, o [concorrente] está captando..." quando houver concorrentes.
` + findingFormat

	salesPitchRole = persona + `

Tarefa: diagnóstico e tratamento. A partir dos três laudos recebidos, monte a proposta comercial.
Formato da resposta: {"headline": string, "symptoms": [3 strings], "prognosis": string, "treatmentPlan": [strings]}.
Os itens do plano de tratamento são ações corretivas imediatas (ex.: "Cirurgia de SEO", "Implante de Conteúdo").`

	campaignRole = persona + `

Tarefa: prescrição de Google Ads. Gere um arquivo CSV de importação do Google Ads Editor com o cabeçalho
Campaign,Ad Group,Headline 1,Headline 2,Headline 3,Description 1,Final URL
e de 3 a 5 linhas de anúncios focados em dor e cirurgia para a especialidade do profissional.
Responda somente com o CSV, sem comentários e sem blocos de código.`
)

// taskFunc renders a phase payload.
type taskFunc func() (string, error)

type patientPayload struct {
	Nome          string `json:"nome"`
	Especialidade string `json:"especialidade,omitempty"`
	Cidade        string `json:"cidade,omitempty"`
	Site          string `json:"site,omitempty"`
}

func patient(s model.Subject) patientPayload {
	return patientPayload{Nome: s.Name, Especialidade: s.Category, Cidade: s.Locality, Site: s.URL}
}

type technicalPayload struct {
	Paciente     patientPayload `json:"paciente"`
	SinaisVitais struct {
		VelocidadeMobile     int    `json:"velocidadeMobile"`
		TempoCarregamento    string `json:"tempoCarregamento"`
		DesempenhoEstimado   bool   `json:"estimado"`
		DiagnosticoSeguranca string `json:"diagnosticoSeguranca"`
		NivelSeguranca       string `json:"nivelSeguranca"`
		SegurancaEstimada    bool   `json:"segurancaEstimada"`
	} `json:"sinaisVitais"`
	DadosDeCampo struct {
		TemDados   bool    `json:"temDados"`
		LCPP75Ms   float64 `json:"lcpP75Ms,omitempty"`
		CLSP75     string  `json:"clsP75,omitempty"`
		Observacao string  `json:"observacao,omitempty"`
		Estimado   bool    `json:"estimado"`
	} `json:"dadosDeCampo"`
}

func technicalTask(s model.Subject, cc model.CollectionContext) taskFunc {
	return func() (string, error) {
		var p technicalPayload
		p.Paciente = patient(s)
		p.SinaisVitais.VelocidadeMobile = cc.Performance.Value.Score
		p.SinaisVitais.TempoCarregamento = cc.Performance.Value.LoadTimeDisplay
		p.SinaisVitais.DesempenhoEstimado = cc.Performance.IsFallback
		p.SinaisVitais.DiagnosticoSeguranca = cc.Security.Value.Detail
		p.SinaisVitais.NivelSeguranca = string(cc.Security.Value.Level)
		p.SinaisVitais.SegurancaEstimada = cc.Security.IsFallback
		p.DadosDeCampo.TemDados = cc.FieldData.Value.HasData
		p.DadosDeCampo.LCPP75Ms = cc.FieldData.Value.LCPP75Milli
		p.DadosDeCampo.CLSP75 = cc.FieldData.Value.CLSP75
		p.DadosDeCampo.Observacao = cc.FieldData.Note
		p.DadosDeCampo.Estimado = cc.FieldData.IsFallback
		return render("Sinais vitais do paciente", p)
	}
}

type brandingPayload struct {
	Paciente    patientPayload `json:"paciente"`
	ExameVisual struct {
		ElementosDetectados []string `json:"elementosDetectados"`
		TextoDetectado      string   `json:"textoDetectado,omitempty"`
		VisualEstimado      bool     `json:"estimado"`
		Sentimento          struct {
			Score     float64 `json:"score"`
			Magnitude float64 `json:"magnitude"`
			Tom       string  `json:"tom"`
			Estimado  bool    `json:"estimado"`
		} `json:"analiseSentimento"`
	} `json:"exameVisual"`
}

// maxOCRChars bounds the page text forwarded to the engine.
const maxOCRChars = 1500

func brandingTask(s model.Subject, cc model.CollectionContext) taskFunc {
	return func() (string, error) {
		var p brandingPayload
		p.Paciente = patient(s)
		p.ExameVisual.ElementosDetectados = cc.Vision.Value.Labels
		p.ExameVisual.TextoDetectado = truncate(cc.Vision.Value.OCRText, maxOCRChars)
		p.ExameVisual.VisualEstimado = cc.Vision.IsFallback
		p.ExameVisual.Sentimento.Score = cc.Sentiment.Value.Score
		p.ExameVisual.Sentimento.Magnitude = cc.Sentiment.Value.Magnitude
		p.ExameVisual.Sentimento.Tom = tone(cc.Sentiment.Value.Score)
		p.ExameVisual.Sentimento.Estimado = cc.Sentiment.IsFallback
		return render("Exame visual do paciente", p)
	}
}

type competitorPayload struct {
	Nome    string  `json:"nome"`
	Nota    float64 `json:"nota"`
	Reviews int     `json:"reviews"`
}

type marketPayload struct {
	Paciente patientPayload `json:"paciente"`
	Mercado  struct {
		Busca        string              `json:"busca"`
		Concorrentes []competitorPayload `json:"concorrentesEncontrados"`
		Estimado     bool                `json:"estimado"`
	} `json:"mercado"`
}

func marketTask(s model.Subject, cc model.CollectionContext) taskFunc {
	return func() (string, error) {
		var p marketPayload
		p.Paciente = patient(s)
		p.Mercado.Busca = s.MarketQuery()
		p.Mercado.Concorrentes = make([]competitorPayload, 0, len(cc.Market.Value))
		for _, c := range cc.Market.Value {
			p.Mercado.Concorrentes = append(p.Mercado.Concorrentes, competitorPayload{Nome: c.Name, Nota: c.Rating, Reviews: c.ReviewCount})
		}
		p.Mercado.Estimado = cc.Market.IsFallback
		return render("Mercado do paciente", p)
	}
}

// salesPitchTask concatenates the three analysis narratives.
func salesPitchTask(s model.Subject, technical, branding, market model.SectionFinding) string {
	var b strings.Builder
	writeHeader(&b, s)
	writeFinding(&b, "Triagem técnica", technical)
	writeFinding(&b, "Exame de imagem e cognitivo", branding)
	writeFinding(&b, "Raio-X do mercado", market)
	return b.String()
}

// campaignTask uses only the technical and market narratives.
func campaignTask(s model.Subject, technical, market model.SectionFinding) string {
	var b strings.Builder
	writeHeader(&b, s)
	writeFinding(&b, "Triagem técnica", technical)
	writeFinding(&b, "Raio-X do mercado", market)
	return b.String()
}

func writeHeader(b *strings.Builder, s model.Subject) {
	fmt.Fprintf(b, "Paciente: %s\n", s.Name)
	if s.Category != "" {
		fmt.Fprintf(b, "Especialidade: %s\n", s.Category)
	}
	if s.Locality != "" {
		fmt.Fprintf(b, "Cidade: %s\n", s.Locality)
	}
	if s.URL != "" {
		fmt.Fprintf(b, "Site: %s\n", s.URL)
	}
}

func writeFinding(b *strings.Builder, title string, f model.SectionFinding) {
	fmt.Fprintf(b, "\n## %s (gravidade: %s)\n%s\n", title, f.Severity, strings.TrimSpace(f.Text))
}

func render(title string, payload any) (string, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: render %s", title)
	}
	return fmt.Sprintf("--- %s (JSON) ---\n%s", title, data), nil
}

func tone(score float64) string {
	switch {
	case score > 0.25:
		return "positivo"
	case score < -0.25:
		return "negativo"
	default:
		return "neutro"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
