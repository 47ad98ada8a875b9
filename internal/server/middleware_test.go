package server

import (
	"testing"

	"github.com/opendub/engine/internal/config"
)

func TestKeyAllowedMatchesConfiguredKeys(t *testing.T) {
	s := &Server{cfg: &config.Config{APIKeys: []string{"alpha", "beta"}}}
	if !s.keyAllowed("alpha") {
		t.Error("expected a configured key to be allowed")
	}
	if s.keyAllowed("gamma") {
		t.Error("expected an unconfigured key to be rejected")
	}
}

func TestOriginAllowedWithEmptyAllowlistAllowsAny(t *testing.T) {
	s := &Server{cfg: &config.Config{}}
	if !s.originAllowed("https://example.com") {
		t.Error("expected an empty allowlist to permit any origin")
	}
}

func TestOriginAllowedRespectsAllowlist(t *testing.T) {
	s := &Server{cfg: &config.Config{CORSOrigins: []string{"https://ok.example"}}}
	if !s.originAllowed("https://ok.example") {
		t.Error("expected the listed origin to be allowed")
	}
	if s.originAllowed("https://evil.example") {
		t.Error("expected an unlisted origin to be rejected")
	}
}

func TestOriginAllowedWildcard(t *testing.T) {
	s := &Server{cfg: &config.Config{CORSOrigins: []string{"*"}}}
	if !s.originAllowed("https://anything.example") {
		t.Error("expected a wildcard allowlist entry to permit any origin")
	}
}
