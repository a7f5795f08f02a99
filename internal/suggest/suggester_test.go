package suggest

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

type fakeLLM struct {
	text  string
	err   error
	calls []LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.text}, nil
}

var slots = []string{"09:00 SA", "09:30 SA", "10:00 SA", "02:00 CH", "02:30 CH"}

func TestMapSuggestions(t *testing.T) {
	text := `{"suggestions":[
		{"time":"9:00 sa","reason":" early "},
		{"time":"11:00 SA","reason":"not offered"},
		{"time":"09:00 SA","reason":"dup"},
		{"time":"02:00 C.H.","reason":"afternoon"},
		{"time":"10:00SA","reason":"third"},
		{"time":"02:30 CH","reason":"fourth"}
	]}`
	got, err := MapSuggestions(text, slots)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{
		{Time: "09:00 SA", Reason: "early"},
		{Time: "02:00 CH", Reason: "afternoon"},
		{Time: "10:00 SA", Reason: "third"},
	}, got)
}

func TestMapSuggestions_CodeFences(t *testing.T) {
	text := "```json\n{\"suggestions\":[{\"time\":\"09:30 SA\"}]}\n```"
	got, err := MapSuggestions(text, slots)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Time: "09:30 SA"}}, got)

	got, err = MapSuggestions("Sure! {\"suggestions\":[{\"time\":\"02:30 CH\"}]} Enjoy.", slots)
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Time: "02:30 CH"}}, got)
}

func TestMapSuggestions_BadOutput(t *testing.T) {
	_, err := MapSuggestions("I cannot help with that", slots)
	assert.ErrorIs(t, err, ErrBadOutput)
}

func TestSuggester_Suggest(t *testing.T) {
	llm := &fakeLLM{text: `{"suggestions":[{"time":"10:00 SA","reason":"quiet morning"}]}`}
	reg := prometheus.NewRegistry()
	s := NewSuggester(llm, WithModel("m-1"), WithMetrics(metrics.NewBookingMetrics(reg)))

	got, err := s.Suggest(context.Background(), Request{
		Services:   []string{"Precision Haircut"},
		Stylist:    "Liam Johnson",
		Date:       "2024-07-28",
		Preference: "morning",
		Candidates: slots,
		Language:   "en",
	})
	require.NoError(t, err)
	assert.Equal(t, []Suggestion{{Time: "10:00 SA", Reason: "quiet morning"}}, got)

	require.Len(t, llm.calls, 1)
	call := llm.calls[0]
	assert.Equal(t, "m-1", call.Model)
	require.Len(t, call.Messages, 1)
	prompt := call.Messages[0].Content
	assert.Contains(t, prompt, "Services: Precision Haircut")
	assert.Contains(t, prompt, "Stylist: Liam Johnson")
	assert.Contains(t, prompt, "- 02:30 CH")
	assert.Contains(t, prompt, "in English")
	assert.Contains(t, prompt, "Pick up to 3 slots")

	count, err := testutil.GatherAndCount(reg, "salon_booking_suggestions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSuggester_Errors(t *testing.T) {
	s := NewSuggester(&fakeLLM{err: errors.New("quota")})
	_, err := s.Suggest(context.Background(), Request{Candidates: slots})
	assert.EqualError(t, err, "quota")

	llm := &fakeLLM{}
	s = NewSuggester(llm)
	_, err = s.Suggest(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoCandidates)
	assert.Empty(t, llm.calls)
}

func TestSuggester_DefaultsInPrompt(t *testing.T) {
	s := NewSuggester(nil)
	prompt, err := s.prompt(Request{Candidates: []string{"09:00 SA"}})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Services: unspecified")
	assert.Contains(t, prompt, "Stylist: any")
	assert.Contains(t, prompt, "in Vietnamese")
}

func TestFallbackClient(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("debug", &buf)

	primary := &fakeLLM{err: errors.New("primary down")}
	secondary := &fakeLLM{text: "ok"}
	resp, err := NewFallbackClient(primary, secondary, logger).Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Contains(t, buf.String(), "primary llm failed")

	_, err = NewFallbackClient(primary, nil, logger).Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "primary down")

	_, err = NewFallbackClient(primary, &fakeLLM{err: errors.New("also down")}, logger).Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "also down")

	good := &fakeLLM{text: "first"}
	resp, err = NewFallbackClient(good, secondary, logger).Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Text)
}
