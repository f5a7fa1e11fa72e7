package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"interview/pkg/config"
	"interview/pkg/interview"
	"interview/pkg/invoker"
	"interview/pkg/llm"
	"interview/pkg/llm/anthropic"
	"interview/pkg/llm/google"
	"interview/pkg/llm/middleware/metrics"
	"interview/pkg/llm/middleware/ratelimit"
	"interview/pkg/llm/middleware/retry"
	"interview/pkg/llm/middleware/timeout"
	"interview/pkg/llm/ollama"
	"interview/pkg/llm/openai"
	"interview/pkg/logx"
	"interview/pkg/questionpack"
	"interview/pkg/session"
	"interview/pkg/speech"
	"interview/pkg/webui"
)

const shutdownTimeout = 10 * time.Second

// resolvePath anchors config-relative paths at the project directory.
func resolvePath(projectDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectDir, path)
}

// newControllerFactory returns the per-session wiring used by the web UI.
// Each session gets its own middleware chain so pacing and retry state
// never leak between concurrent interviews.
func newControllerFactory(cfg *config.Config, deps *engineDeps) webui.ControllerFactory {
	recorder := metrics.NewPrometheusRecorder()

	logger := logx.NewLogger("factory")
	pack := questionpack.DefaultPack()
	if cfg.QuestionPack != "" {
		loaded, err := questionpack.Load(cfg.QuestionPack)
		if err != nil {
			logger.Warn("Failed to load question pack %s, using defaults: %v", cfg.QuestionPack, err)
		} else {
			pack = loaded
		}
	}

	return func(role string, devices speech.Devices) (*interview.Controller, error) {
		sess := session.New(role, cfg.Interview.MaxQuestions)

		client, err := buildLLMClient(cfg, sess, recorder)
		if err != nil {
			return nil, err
		}

		inv := invoker.New(client, pack, recorder)
		return interview.NewController(sess, inv, devices, deps.store, interview.Config{
			LoadingTimeout: time.Duration(cfg.Interview.LoadingTimeoutSecs) * time.Second,
			Recorder:       recorder,
		}), nil
	}
}

// buildLLMClient assembles the provider client with its middleware chain.
// Retry sits outermost so every attempt is paced, measured, and bounded.
func buildLLMClient(cfg *config.Config, sess *session.State, recorder metrics.Recorder) (llm.LLMClient, error) {
	base, err := buildProviderClient(&cfg.Provider)
	if err != nil {
		return nil, err
	}

	pacer := ratelimit.NewIntervalPacer(cfg.Provider.Name, time.Duration(cfg.Interview.RateFloorSecs)*time.Second)
	phase := func() string { return string(sess.Phase()) }

	return llm.Chain(base,
		retry.Middleware(retry.NewPolicy(retry.DefaultConfig, nil)),
		ratelimit.Middleware(pacer, sess.ID(), recorder),
		metrics.Middleware(recorder, sess.ID(), phase),
		timeout.Middleware(time.Duration(cfg.Interview.LLMTimeoutSecs)*time.Second),
	), nil
}

func buildProviderClient(provider *config.Provider) (llm.LLMClient, error) {
	switch strings.ToLower(provider.Name) {
	case "anthropic":
		key, err := config.GetSecret("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("anthropic provider needs a key: %w", err)
		}
		if provider.Model != "" {
			return anthropic.NewClaudeClientWithModel(key, provider.Model), nil
		}
		return anthropic.NewClaudeClient(key), nil
	case "openai":
		key, err := config.GetSecret("OPENAI_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("openai provider needs a key: %w", err)
		}
		if provider.Model != "" {
			return openai.NewClientWithModel(key, provider.Model), nil
		}
		return openai.NewClient(key), nil
	case "ollama":
		return ollama.NewClientWithModel(provider.Host, provider.Model), nil
	case "google":
		key, err := config.GetSecret("GEMINI_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("google provider needs a key: %w", err)
		}
		return google.NewGeminiClientWithModel(key, provider.Model), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider.Name)
	}
}
