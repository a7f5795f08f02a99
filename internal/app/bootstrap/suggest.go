package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/observability/metrics"
	"github.com/wolfman30/salon-booking/internal/suggest"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

// AWSLoader produces the AWS SDK config for Bedrock.
type AWSLoader func(ctx context.Context) (aws.Config, error)

// BuildSuggester wires the schedule suggestion LLM from config. Provider
// "auto" uses Gemini when an API key is set and Bedrock when a model id is
// set; with both, Bedrock backs Gemini up. A nil suggester with a nil error
// means suggestions are disabled. The returned close function is never nil.
func BuildSuggester(ctx context.Context, cfg *appconfig.Config, loadAWS AWSLoader, m *metrics.BookingMetrics, logger *logging.Logger) (*suggest.Suggester, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	useGemini, useBedrock := false, false
	switch cfg.LLMProvider {
	case "none", "off", "disabled":
		logger.Info("schedule suggestions disabled")
		return nil, noop, nil
	case "gemini":
		useGemini = true
	case "bedrock":
		useBedrock = true
	default:
		useGemini = cfg.GeminiAPIKey != ""
		useBedrock = cfg.BedrockModelID != ""
	}

	var (
		clients []suggest.LLMClient
		model   string
		closer  = noop
	)
	if useGemini {
		if cfg.GeminiAPIKey == "" {
			return nil, noop, fmt.Errorf("bootstrap: GEMINI_API_KEY is required for the gemini provider")
		}
		gemini, err := suggest.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		clients = append(clients, gemini)
		closer = func() { _ = gemini.Close() }
		model = cfg.GeminiModelID
	}
	if useBedrock {
		if cfg.BedrockModelID == "" {
			closer()
			return nil, noop, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required for the bedrock provider")
		}
		if loadAWS == nil {
			closer()
			return nil, noop, fmt.Errorf("bootstrap: aws config loader is required for bedrock")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			closer()
			return nil, noop, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		clients = append(clients, suggest.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID))
		if model == "" {
			model = cfg.BedrockModelID
		}
	}

	var llm suggest.LLMClient
	switch len(clients) {
	case 0:
		logger.Warn("no LLM configured; schedule suggestions disabled")
		return nil, noop, nil
	case 1:
		llm = clients[0]
	default:
		llm = suggest.NewFallbackClient(clients[0], clients[1], logger)
	}

	logger.Info("schedule suggestions enabled", "provider", cfg.LLMProvider, "model", model, "fallback", len(clients) > 1)
	// Each client carries its own model id.
	return suggest.NewSuggester(llm, suggest.WithMetrics(m), suggest.WithLogger(logger)), closer, nil
}
