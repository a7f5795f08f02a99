package suggest

import (
	"context"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// FallbackClient retries a failed completion on a second provider.
type FallbackClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackClient returns a client that tries primary first. A nil
// fallback makes it a plain pass-through.
func NewFallbackClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{primary: primary, fallback: fallback, logger: logger}
}

func (c *FallbackClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	c.logger.Warn("primary llm failed",
		"error", err.Error(),
		"fallback_available", c.fallback != nil,
	)
	if c.fallback == nil || ctx.Err() != nil {
		return LLMResponse{}, err
	}

	resp, fbErr := c.fallback.Complete(ctx, req)
	if fbErr != nil {
		c.logger.Error("fallback llm also failed",
			"primary_error", err.Error(),
			"fallback_error", fbErr.Error(),
		)
		return LLMResponse{}, fbErr
	}
	c.logger.Info("fallback llm succeeded after primary failure")
	return resp, nil
}
