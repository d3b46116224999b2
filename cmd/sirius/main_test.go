package main

import (
	"strings"
	"testing"
)

// Flag state on rootCmd is package-global, so the rejected values are
// corrected step by step within one test.
func TestBuildConfigRejectsExplicitZeroValues(t *testing.T) {
	f := rootCmd.Flags()
	mustSet := func(name, value string) {
		t.Helper()
		if err := f.Set(name, value); err != nil {
			t.Fatalf("set --%s=%s: %v", name, value, err)
		}
	}

	mustSet("url", "http://127.0.0.1:9/")

	mustSet("requests", "0")
	if _, err := buildConfig(rootCmd); err == nil || !strings.Contains(err.Error(), "requests") {
		t.Fatalf("requests=0: err = %v, want rejection", err)
	}

	mustSet("requests", "5")
	mustSet("concurrency", "0")
	if _, err := buildConfig(rootCmd); err == nil || !strings.Contains(err.Error(), "concurrency") {
		t.Fatalf("concurrency=0: err = %v, want rejection", err)
	}

	mustSet("concurrency", "2")
	mustSet("timeout", "-1s")
	if _, err := buildConfig(rootCmd); err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("timeout=-1s: err = %v, want rejection", err)
	}

	mustSet("timeout", "1s")
	cfg, err := buildConfig(rootCmd)
	if err != nil {
		t.Fatalf("buildConfig with valid flags: %v", err)
	}
	if cfg.Requests != 5 || cfg.Concurrency != 2 {
		t.Errorf("flag values not carried: %+v", cfg)
	}
	if cfg.Method != "GET" {
		t.Errorf("defaults not applied: method = %q", cfg.Method)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("built config does not validate: %v", err)
	}
}
