package textnorm

import "testing"

func TestClean(t *testing.T) {
	got := Clean("  What is HTMX? \r\n")
	want := "what is htmx?"
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestFingerprint(t *testing.T) {
	t.Run("generates correct hash", func(t *testing.T) {
		// Hash for "q\na\nc"
		want := "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2"
		if got := Fingerprint("Q", "A", "C"); got != want {
			t.Errorf("Fingerprint = %q, want %q", got, want)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		if Fingerprint("Test") != Fingerprint("Test") {
			t.Error("identical input produced different fingerprints")
		}
	})

	t.Run("normalization folds case and whitespace", func(t *testing.T) {
		a := Fingerprint("  what is go? ", "A programming language.")
		b := Fingerprint("What Is Go?", "A programming language.")
		if a != b {
			t.Error("fingerprints differ after normalization")
		}
	})

	t.Run("different content differs", func(t *testing.T) {
		if Fingerprint("Card 1") == Fingerprint("Card 2") {
			t.Error("distinct content produced the same fingerprint")
		}
	})

	t.Run("field boundaries preserved", func(t *testing.T) {
		if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
			t.Error("field boundary collapsed")
		}
	})
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "the capital of France", []string{"the", "capital", "of", "france"}},
		{"punctuation dropped", "It's a cache.", []string{"its", "a", "cache"}},
		{"hyphens split", "spaced-repetition scheduling", []string{"spaced", "repetition", "scheduling"}},
		{"digits kept", "boils at 100C", []string{"boils", "at", "100c"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokens(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokens(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Tokens(%q) = %v, want %v", tt.in, got, tt.want)
				}
			}
		})
	}
}
