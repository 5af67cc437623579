package textutil_test

import (
	"strings"
	"testing"

	"skimmer/internal/textutil"
)

func TestFold(t *testing.T) {
	if got := textutil.Fold("LLaMA Models"); got != "llama models" {
		t.Fatalf("Fold = %q", got)
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	got := textutil.Tokenize("A GPU-based LLM, v2!")
	want := []string{"gpu", "based", "llm", "v2"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestContentTokensRemovesStopWords(t *testing.T) {
	got := textutil.ContentTokens("what is the best local model for coding")
	for _, token := range got {
		if textutil.IsStopWord(token) {
			t.Fatalf("stop word %q survived: %v", token, got)
		}
	}
	joined := strings.Join(got, " ")
	for _, want := range []string{"best", "local", "model", "coding"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("content word %q missing from %v", want, got)
		}
	}
}

func TestCountHitsCountsEachNeedleOnce(t *testing.T) {
	haystack := "Llama llama LLAMA inference"
	if got := textutil.CountHits(haystack, []string{"llama", "inference", "missing"}); got != 2 {
		t.Fatalf("CountHits = %d, want 2", got)
	}
	if got := textutil.CountHits("", []string{"llama"}); got != 0 {
		t.Fatalf("CountHits on empty haystack = %d", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := textutil.TruncateRunes("short", 10); got != "short" {
		t.Fatalf("TruncateRunes = %q", got)
	}
	got := textutil.TruncateRunes("a very long sentence indeed", 10)
	if len([]rune(got)) != 10 || !strings.HasSuffix(got, "...") {
		t.Fatalf("TruncateRunes = %q", got)
	}
	if got := textutil.TruncateRunes("héllo wörld", 8); len([]rune(got)) != 8 {
		t.Fatalf("TruncateRunes must count runes, got %q", got)
	}
	if got := textutil.TruncateRunes("anything", 0); got != "" {
		t.Fatalf("zero limit must yield empty, got %q", got)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	if got := textutil.CollapseWhitespace("  a\t b\n\nc  "); got != "a b c" {
		t.Fatalf("CollapseWhitespace = %q", got)
	}
}
