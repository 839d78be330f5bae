package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"EXTRACTOR_MODEL", "REASONING_MODEL", "USE_MOCK_OCR", "PIPELINE_MAX_PARALLEL_DOCUMENTS", "ORACLE_ATTEMPT_TIMEOUT", "RULES_DIR"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.OllamaExtractModel != "llama3.1:8b" || cfg.OllamaReasonModel != "llama3.1:8b" {
		t.Fatalf("unexpected default models %q/%q", cfg.OllamaExtractModel, cfg.OllamaReasonModel)
	}
	if cfg.UseMockOCR {
		t.Fatalf("mock OCR must be disabled by default")
	}
	if cfg.PipelineMaxParallelDocuments != 4 {
		t.Fatalf("expected default parallelism 4, got %d", cfg.PipelineMaxParallelDocuments)
	}
	if cfg.OracleAttemptTimeout != 90*time.Second {
		t.Fatalf("expected default attempt timeout 90s, got %s", cfg.OracleAttemptTimeout)
	}
	if cfg.RulesDir != "./data/insurance_rules" {
		t.Fatalf("unexpected rules dir %q", cfg.RulesDir)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("EXTRACTOR_MODEL", "qwen2.5:7b")
	t.Setenv("REASONING_MODEL", "llama3.1:70b")
	t.Setenv("USE_MOCK_OCR", "true")
	t.Setenv("PIPELINE_MAX_PARALLEL_DOCUMENTS", "8")
	t.Setenv("ORACLE_ATTEMPT_TIMEOUT", "45s")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")

	cfg := Load()
	if cfg.OllamaExtractModel != "qwen2.5:7b" || cfg.OllamaReasonModel != "llama3.1:70b" {
		t.Fatalf("model overrides not applied: %q/%q", cfg.OllamaExtractModel, cfg.OllamaReasonModel)
	}
	if !cfg.UseMockOCR || cfg.PipelineMaxParallelDocuments != 8 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	if cfg.OracleAttemptTimeout != 45*time.Second || cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("unexpected timeout/rps %s/%v", cfg.OracleAttemptTimeout, cfg.APIRateLimitRPS)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("PIPELINE_MAX_PARALLEL_DOCUMENTS", "many")
	t.Setenv("ORACLE_ATTEMPT_TIMEOUT", "-5s")
	t.Setenv("USE_MOCK_OCR", "sometimes")

	cfg := Load()
	if cfg.PipelineMaxParallelDocuments != 4 || cfg.OracleAttemptTimeout != 90*time.Second || cfg.UseMockOCR {
		t.Fatalf("malformed values must fall back to defaults: %+v", cfg)
	}
}

func TestOracleResilience(t *testing.T) {
	cfg := Config{OracleRetryMaxAttempts: 5, OracleAttemptTimeout: time.Minute, OracleBreakerEnabled: false}
	policy := cfg.OracleResilience()
	if policy.RetryMaxAttempts != 5 || policy.AttemptTimeout != time.Minute || policy.BreakerEnabled {
		t.Fatalf("unexpected policy %+v", policy)
	}
	if policy.RetryInitialBackoff <= 0 {
		t.Fatalf("defaults must be kept for unset fields: %+v", policy)
	}
}
