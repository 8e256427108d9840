package models

import "testing"

func TestNormalizeTopic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AI Regulation", "ai regulation"},
		{"  #OpenAI  ", "openai"},
		{"Breaking: Rate Cuts!!!", "breaking rate cuts"},
		{"machine-learning/ops", "machine learning ops"},
		{"Multiple   spaces\there", "multiple spaces here"},
		{"", ""},
		{"🔥🔥🔥", ""},
	}

	for _, tt := range tests {
		if got := NormalizeTopic(tt.in); got != tt.want {
			t.Errorf("NormalizeTopic(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCandidateHasVolume(t *testing.T) {
	c := Candidate{Volume: 0}
	if c.HasVolume() {
		t.Error("zero volume should read as unknown")
	}
	c.Volume = 12000
	if !c.HasVolume() {
		t.Error("positive volume should be known")
	}
}
