package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

var tracer = otel.Tracer("salon.internal.suggest")

// MaxSuggestions caps how many slots are returned.
const MaxSuggestions = 3

var (
	ErrNoCandidates = errors.New("suggest: no candidate slots to choose from")
	ErrBadOutput    = errors.New("suggest: model output is not valid suggestion JSON")
)

// Request describes what the customer is booking and which slot labels are
// open. Candidates are the only labels a suggestion may resolve to.
type Request struct {
	Services   []string `json:"services"`
	Stylist    string   `json:"stylist"`
	Date       string   `json:"date"`
	Preference string   `json:"preference"`
	Candidates []string `json:"candidates"`
	Language   string   `json:"language"`
}

// Suggestion is a candidate slot picked by the model.
type Suggestion struct {
	Time   string `json:"time"`
	Reason string `json:"reason,omitempty"`
}

type Suggester struct {
	llm         LLMClient
	model       string
	maxTokens   int32
	temperature float32
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
}

type Option func(*Suggester)

// WithModel sets the model id forwarded on each request.
func WithModel(model string) Option {
	return func(s *Suggester) { s.model = model }
}

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Suggester) { s.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(s *Suggester) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewSuggester(llm LLMClient, opts ...Option) *Suggester {
	s := &Suggester{
		llm:         llm,
		maxTokens:   512,
		temperature: 0.2,
		logger:      logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var promptTemplate = template.Must(template.New("prompt").Parse(`A customer is booking a salon appointment.
Services: {{range $i, $s := .Services}}{{if $i}}, {{end}}{{$s}}{{else}}unspecified{{end}}
Stylist: {{if .Stylist}}{{.Stylist}}{{else}}any{{end}}
Date: {{if .Date}}{{.Date}}{{else}}flexible{{end}}
Customer preference: {{if .Preference}}{{.Preference}}{{else}}none given{{end}}

Open time slots:
{{range .Candidates}}- {{.}}
{{end}}
Pick up to {{.Max}} slots from the list above that best match the preference.
Copy each time exactly as written in the list.
Write each reason in {{.LanguageName}}, one short sentence.
Reply with JSON only: {"suggestions":[{"time":"<slot>","reason":"<why>"}]}`))

const systemPrompt = "You are a scheduling assistant for a hair salon. You only answer with JSON."

func (s *Suggester) prompt(req Request) (string, error) {
	lang := "Vietnamese"
	if strings.EqualFold(strings.TrimSpace(req.Language), "en") {
		lang = "English"
	}
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Request
		Max          int
		LanguageName string
	}{req, MaxSuggestions, lang})
	if err != nil {
		return "", fmt.Errorf("suggest: render prompt: %w", err)
	}
	return buf.String(), nil
}

// Suggest asks the model for the best open slots and maps its answer back
// onto req.Candidates.
func (s *Suggester) Suggest(ctx context.Context, req Request) ([]Suggestion, error) {
	ctx, span := tracer.Start(ctx, "suggest.Suggest")
	defer span.End()
	span.SetAttributes(
		attribute.Int("suggest.candidates", len(req.Candidates)),
		attribute.Int("suggest.services", len(req.Services)),
	)

	out, err := s.suggest(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveSuggestion("error")
		return nil, err
	}
	span.SetAttributes(attribute.Int("suggest.returned", len(out)))
	if len(out) == 0 {
		s.metrics.ObserveSuggestion("empty")
	} else {
		s.metrics.ObserveSuggestion("ok")
	}
	return out, nil
}

func (s *Suggester) suggest(ctx context.Context, req Request) ([]Suggestion, error) {
	if len(req.Candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if s.llm == nil {
		return nil, errors.New("suggest: no language model configured")
	}
	prompt, err := s.prompt(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.llm.Complete(ctx, LLMRequest{
		Model:       s.model,
		System:      []string{systemPrompt},
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("suggestion completion",
		"stop_reason", resp.StopReason,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return MapSuggestions(resp.Text, req.Candidates)
}

type modelOutput struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// MapSuggestions parses model output and keeps only suggestions whose time
// matches a candidate label, returned in the candidate's own spelling.
// Duplicates are dropped and at most MaxSuggestions are kept.
func MapSuggestions(text string, candidates []string) ([]Suggestion, error) {
	var parsed modelOutput
	if err := json.Unmarshal([]byte(stripFences(text)), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadOutput, err)
	}

	index := make(map[string]string, len(candidates))
	for _, c := range candidates {
		key := normalizeLabel(c)
		if _, ok := index[key]; !ok {
			index[key] = c
		}
	}

	out := make([]Suggestion, 0, MaxSuggestions)
	seen := make(map[string]bool)
	for _, sug := range parsed.Suggestions {
		label, ok := index[normalizeLabel(sug.Time)]
		if !ok || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, Suggestion{Time: label, Reason: strings.TrimSpace(sug.Reason)})
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start > 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// normalizeLabel folds spacing, case and dots, and drops a leading zero on
// the hour so "9:00 sa", "09:00SA" and "09:00 S.A." compare equal.
func normalizeLabel(label string) string {
	s := strings.ToUpper(strings.TrimSpace(label))
	s = strings.NewReplacer(" ", "", ".", "").Replace(s)
	if len(s) > 1 && s[0] == '0' && s[1] != ':' {
		s = s[1:]
	}
	return s
}
