package llm

import (
	"fmt"
	"learnhub_backend/internal/config"
)

// NewProvider 根据配置创建模型服务，调用链：retry -> instrumentation -> provider
func NewProvider(cfg config.AIConfig) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "openai", "":
		base, err = NewOpenAIProvider(OpenAIConfig{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			JSONObjectMode: cfg.JSONObjectMode,
		})
	case "anthropic":
		base, err = NewAnthropicProvider(AnthropicConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.AnthropicModel,
		})
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	retry := DefaultRetryConfig()
	if cfg.RetryMaxAttempts > 0 {
		retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialWait > 0 {
		retry.InitialWait = cfg.RetryInitialWait
	}
	if cfg.RetryMaxWait > 0 {
		retry.MaxWait = cfg.RetryMaxWait
	}
	if cfg.RetryMultiplier > 0 {
		retry.Multiplier = cfg.RetryMultiplier
	}

	name := cfg.Provider
	if name == "" {
		name = "openai"
	}
	return WithRetry(WithInstrumentation(base, name), retry), nil
}
