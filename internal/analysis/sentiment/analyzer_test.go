package sentiment

import "testing"

func TestAnalyzePositiveMessage(t *testing.T) {
	// 7 words, 3 lexicon hits (great, wonderful, deal): net=3,
	// confidence = min(3/7*10, 1) = 1.
	score := Analyze("This is a great and wonderful deal")
	if score.Label != Positive {
		t.Fatalf("expected positive label, got %s", score.Label)
	}
	if score.PositiveHits != 3 || score.NegativeHits != 0 {
		t.Fatalf("unexpected hits: +%d -%d", score.PositiveHits, score.NegativeHits)
	}
	if score.WordCount != 7 {
		t.Fatalf("unexpected word count: %d", score.WordCount)
	}
	if score.Confidence != 1 {
		t.Fatalf("unexpected confidence: %f", score.Confidence)
	}
}

func TestAnalyzeNegativeMessage(t *testing.T) {
	score := Analyze("That price is ridiculous and insulting")
	if score.Label != Negative {
		t.Fatalf("expected negative label, got %s", score.Label)
	}
	if score.Net != -2 {
		t.Fatalf("expected net -2, got %d", score.Net)
	}
}

func TestAnalyzeNeutralAndEmpty(t *testing.T) {
	if got := Analyze("let me check with my partner first").Label; got != Neutral {
		t.Fatalf("expected neutral label, got %s", got)
	}
	empty := Analyze("   ")
	if empty.Label != Neutral || empty.Confidence != 0 || empty.WordCount != 0 {
		t.Fatalf("unexpected empty score: %+v", empty)
	}
}

func TestAnalyzeConfidenceFormula(t *testing.T) {
	// 10 words, one positive hit: confidence = 1/10*10 = 1.
	score := Analyze("one two three four five six seven eight nine good")
	if score.Confidence != 1 {
		t.Fatalf("unexpected confidence: %f", score.Confidence)
	}
	// 20 words, one positive hit: confidence = 1/20*10 = 0.5.
	long := Analyze("w w w w w w w w w w w w w w w w w w w good")
	if long.Confidence != 0.5 {
		t.Fatalf("unexpected confidence: %f", long.Confidence)
	}
}
