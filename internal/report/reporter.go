package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wonny/krxscan/internal/contracts"
	"github.com/wonny/krxscan/internal/screening"
	"github.com/wonny/krxscan/internal/strategyconfig"
)

// DefaultNoMatch is rendered when nothing qualified. Fields: .Now, .Title
const DefaultNoMatch = `🔍 [{{.Now}}] {{.Title}}: 조건에 맞는 종목이 없습니다.`

const resultTemplate = `📊 **[{{.Now}}] {{.Title}} 결과**
{{- range .Trends}}
📈 {{.Market}} 수급(억): 개인 {{signed .Individual}} / 外 {{signed .Foreign}} / 機 {{signed .Institution}}
{{- end}}
{{range .Results}}
✅ **{{.Instrument.Name}}** ({{.Instrument.Code}})
└ {{primary $.SortBy .Signals}} | 등락률: {{printf "%.2f" .Signals.DayReturn}}%
{{- if $.ShowFlow}}
└ 수급: {{flow .Flow}}
{{- end}}
{{- with .Fundamentals}}
└ 영업이익: {{profits .Periods}}
{{- end}}
{{end}}
{{- if .DualBuying}}
🔥 **쌍끌이 매수 TOP {{len .DualBuying}}**
{{- range $i, $r := .DualBuying}}
{{inc $i}}. {{$r.Instrument.Name}} ({{$r.Instrument.Code}}) 外 {{signed $r.Flow.Foreign}} / 機 {{signed $r.Flow.Institutional}}
{{- end}}
{{end}}
{{- if .Summary}}
{{footer .Summary}}
{{- end}}`

const errorTemplate = `⚠️ **[{{.Now}}] {{.Title}} 실패**
사유: {{.Err}}`

// Options configures rendering
type Options struct {
	Location    *time.Location
	NoMatch     string // text/template, empty = DefaultNoMatch
	ShowSummary bool
}

// Run is everything the reporter needs for one scan
type Run struct {
	Preset    strategyconfig.Preset
	At        time.Time
	Selection screening.Selection
	Trends    []contracts.MarketTrend
	Summary   *Summary
}

// Reporter renders scan results into chat text
// ⭐ SSOT: 리포트 문구는 여기서만 생성
type Reporter struct {
	loc         *time.Location
	results     *template.Template
	noMatch     *template.Template
	failure     *template.Template
	showSummary bool
}

// New parses the report templates
func New(opts Options) (*Reporter, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.NoMatch == "" {
		opts.NoMatch = DefaultNoMatch
	}

	funcs := templateFuncs()
	results, err := template.New("results").Funcs(funcs).Parse(resultTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse results template: %w", err)
	}
	noMatch, err := template.New("no_match").Parse(opts.NoMatch)
	if err != nil {
		return nil, fmt.Errorf("parse no-match template: %w", err)
	}
	failure, err := template.New("failure").Parse(errorTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse error template: %w", err)
	}

	return &Reporter{
		loc:         opts.Location,
		results:     results,
		noMatch:     noMatch,
		failure:     failure,
		showSummary: opts.ShowSummary,
	}, nil
}

func (r *Reporter) nowTag(at time.Time) string {
	return at.In(r.loc).Format("2006-01-02 15:04")
}

func title(p strategyconfig.Preset) string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

// Render produces the report text. An empty selection renders the no-match
// message and nothing else.
func (r *Reporter) Render(run Run) (string, error) {
	if len(run.Selection.Qualified) == 0 {
		return r.NoMatch(run.Preset, run.At)
	}

	data := map[string]interface{}{
		"Now":        r.nowTag(run.At),
		"Title":      title(run.Preset),
		"SortBy":     run.Preset.SortBy,
		"ShowFlow":   run.Preset.Flow.Enabled,
		"Results":    run.Selection.Qualified,
		"DualBuying": run.Selection.DualBuying,
		"Trends":     run.Trends,
		"Summary":    (*Summary)(nil),
	}
	if r.showSummary && run.Summary != nil {
		data["Summary"] = run.Summary
	}

	var buf bytes.Buffer
	if err := r.results.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render results: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// NoMatch renders the designated no-match message
func (r *Reporter) NoMatch(preset strategyconfig.Preset, at time.Time) (string, error) {
	var buf bytes.Buffer
	err := r.noMatch.Execute(&buf, map[string]string{
		"Now":   r.nowTag(at),
		"Title": title(preset),
	})
	if err != nil {
		return "", fmt.Errorf("render no-match: %w", err)
	}
	return buf.String(), nil
}

// RenderError produces the failure notice sent when a run cannot screen anything
func (r *Reporter) RenderError(preset strategyconfig.Preset, at time.Time, cause error) string {
	var buf bytes.Buffer
	err := r.failure.Execute(&buf, map[string]string{
		"Now":   r.nowTag(at),
		"Title": title(preset),
		"Err":   cause.Error(),
	})
	if err != nil {
		return fmt.Sprintf("⚠️ [%s] %s 실패: %v", r.nowTag(at), title(preset), cause)
	}
	return buf.String()
}

var printer = message.NewPrinter(language.Korean)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"inc":     func(i int) int { return i + 1 },
		"signed":  signed,
		"primary": primary,
		"flow":    flow,
		"profits": profits,
		"footer":  footer,
	}
}

// signed formats 1234 as "+1,234"
func signed(n int64) string {
	if n > 0 {
		return printer.Sprintf("+%d", n)
	}
	return printer.Sprintf("%d", n)
}

// primary renders the signal the preset sorts on
func primary(sortBy string, s contracts.SignalSet) string {
	switch sortBy {
	case "rsi":
		return printer.Sprintf("RSI: **%.1f** | 거래대금 중앙값: %s억", s.RSI, eok(s.TradingValueMedian))
	case "volume_ratio":
		return printer.Sprintf("거래량비: **%.1f%%** | 이격도: %.2f", s.VolumeRatio, s.Disparity)
	default:
		return printer.Sprintf("이격도: **%.2f**", s.Disparity)
	}
}

func flow(f *contracts.FlowFact) string {
	if f == nil || !f.Available {
		return "조회 불가"
	}
	return fmt.Sprintf("外 %s / 機 %s", signed(f.Foreign), signed(f.Institutional))
}

func profits(periods []contracts.PeriodProfit) string {
	parts := make([]string, len(periods))
	for i, p := range periods {
		parts[i] = fmt.Sprintf("%s %s억", p.Label, eokDecimal(p.Amount))
	}
	return strings.Join(parts, " | ")
}

var hundredMillion = decimal.NewFromInt(100_000_000)

func eokDecimal(d decimal.Decimal) string {
	return printer.Sprintf("%d", d.Div(hundredMillion).Round(0).IntPart())
}

func eok(v float64) string {
	return printer.Sprintf("%d", int64(v/1e8))
}

func footer(s *Summary) string {
	line := fmt.Sprintf("⏱ 대상 %d · 통과 %d · 탈락 %d · 데이터부족 %d · 조회실패 %d · %s",
		s.Universe,
		s.Count(contracts.OutcomeQualified),
		s.Count(contracts.OutcomeRejected),
		s.Count(contracts.OutcomeInsufficientData),
		s.Count(contracts.OutcomeFetchError),
		s.Duration.Round(time.Second),
	)
	if len(s.ConfigHash) >= 8 {
		line += " · cfg " + s.ConfigHash[:8]
	}
	return line
}
