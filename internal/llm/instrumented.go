package llm

import (
	"context"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
)

// InstrumentedProvider 记录每次模型调用的耗时、token 与结果
type InstrumentedProvider struct {
	inner Provider
	name  string
}

func WithInstrumentation(p Provider, name string) Provider {
	return &InstrumentedProvider{inner: p, name: name}
}

func (p *InstrumentedProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := p.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	outcome := Classify(err)
	monitoring.LLMRequestCounter.WithLabelValues(p.name, outcome).Inc()
	monitoring.LLMRequestDuration.WithLabelValues(p.name).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("provider", p.name),
		zap.String("model", p.inner.ModelID()),
		zap.Duration("latency", elapsed),
		zap.String("outcome", outcome),
	}
	if resp != nil {
		monitoring.LLMTokenCounter.WithLabelValues(p.name, "input").Add(float64(resp.Usage.InputTokens))
		monitoring.LLMTokenCounter.WithLabelValues(p.name, "output").Add(float64(resp.Usage.OutputTokens))
		fields = append(fields,
			zap.Int("inputTokens", resp.Usage.InputTokens),
			zap.Int("outputTokens", resp.Usage.OutputTokens),
		)
	}

	if err != nil {
		logger.Log.Warn("LLM request failed", append(fields, zap.Error(err))...)
	} else {
		logger.Log.Debug("LLM request completed", fields...)
	}

	return resp, err
}

func (p *InstrumentedProvider) ModelID() string {
	return p.inner.ModelID()
}
