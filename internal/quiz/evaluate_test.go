package quiz

import (
	"testing"

	"englishdrills/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "He Doesn't Like", "he doesn't like"},
		{"collapse whitespace", "  he   doesn't\tlike \n vegetables ", "he doesn't like vegetables"},
		{"strip terminal punctuation", "Does she speak French?", "does she speak french"},
		{"strip repeated punctuation", "Stop!!! ", "stop"},
		{"punctuation after space", "I like cooking .", "i like cooking"},
		{"inner punctuation kept", "Yes, please.", "yes, please"},
		{"curly apostrophe", "He doesn’t", "he doesn't"},
		{"empty", "", ""},
		{"only punctuation", "?!.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"He don't like vegetables.",
		"  MIXED   case , spaces ;  ",
		"Could we have a table for two, please?",
		"a . b . c .",
		"…ellipsis…",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestJoinTokens(t *testing.T) {
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"I", "like", "cooking", "."}, "I like cooking."},
		{[]string{"Could", "we", "have", "a", "table", "for", "two", ",", "please", "?"}, "Could we have a table for two, please?"},
		{[]string{"It", "'s", "late", "!"}, "It's late!"},
		{[]string{" I ", "", "run"}, "I run"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := JoinTokens(tt.tokens); got != tt.want {
			t.Errorf("JoinTokens(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

func TestEvaluateMultipleChoice(t *testing.T) {
	q := models.Question{
		ID:      "mc",
		Kind:    models.KindMultipleChoice,
		Prompt:  "She ___ to work.",
		Options: []string{"go", "goes", "going", "gone"},
		Correct: 1,
	}

	for i := -1; i <= len(q.Options); i++ {
		v := Evaluate(q, Submission{Index: i})
		if v.Correct != (i == q.Correct) {
			t.Errorf("Evaluate(index %d).Correct = %v, want %v", i, v.Correct, i == q.Correct)
		}
		if v.Answer != "goes" {
			t.Errorf("Evaluate(index %d).Answer = %q, want goes", i, v.Answer)
		}
	}
}

func TestEvaluateFixIt(t *testing.T) {
	q := models.Question{
		ID:        "fix",
		Kind:      models.KindFixIt,
		Prompt:    "He don't like vegetables.",
		Expected:  "He doesn't like vegetables.",
		Alternate: "he does not like vegetables",
	}

	tests := []struct {
		name   string
		text   string
		wanted bool
	}{
		{"exact", "He doesn't like vegetables.", true},
		{"case and spacing", "  he DOESN'T   like vegetables ", true},
		{"missing full stop", "He doesn't like vegetables", true},
		{"alternate", "He does not like vegetables!", true},
		{"alternate is anchored", "I think he does not like vegetables", false},
		{"wrong", "He don't like vegetables.", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(q, Submission{Text: tt.text})
			if v.Correct != tt.wanted {
				t.Errorf("Evaluate(%q).Correct = %v, want %v", tt.text, v.Correct, tt.wanted)
			}
		})
	}
}

func TestEvaluateFixItNormalizedExpectedAlwaysCorrect(t *testing.T) {
	expected := []string{
		"He doesn't like vegetables.",
		"Could we have the bill, please?",
		"Flight BA12 is now boarding at gate 9.",
		"Yes!",
	}
	for _, e := range expected {
		q := models.Question{ID: "q", Kind: models.KindFixIt, Prompt: "p", Expected: e}
		if !Evaluate(q, Submission{Text: Normalize(e)}).Correct {
			t.Errorf("normalized expected %q was not accepted", e)
		}
	}
}

func TestEvaluateFixItAlternateIgnoresCase(t *testing.T) {
	e := NewEvaluator()
	q := models.Question{ID: "q", Kind: models.KindFixIt, Prompt: "p", Expected: "I would like tea.", Alternate: "I'?d like tea"}
	for _, text := range []string{"I'd like tea.", "id LIKE tea"} {
		if v := e.Evaluate(q, Submission{Text: text}); !v.Correct {
			t.Errorf("Evaluate(%q) should match the alternate", text)
		}
	}
	if v := e.Evaluate(q, Submission{Text: "I like tea"}); v.Correct {
		t.Error("alternate must match the whole answer")
	}
}

func TestEvaluateFixItBadAlternate(t *testing.T) {
	q := models.Question{ID: "q", Kind: models.KindFixIt, Prompt: "p", Expected: "yes", Alternate: "("}
	if Evaluate(q, Submission{Text: "no"}).Correct {
		t.Error("invalid alternate pattern should not accept answers")
	}
	if !Evaluate(q, Submission{Text: "Yes."}).Correct {
		t.Error("expected answer should still be accepted")
	}
}

func TestEvaluateWordOrder(t *testing.T) {
	q := models.Question{
		ID:     "wo",
		Kind:   models.KindWordOrder,
		Prompt: "Say what you enjoy.",
		Tokens: []string{"I", "like", "cooking", "."},
	}

	tests := []struct {
		name   string
		sub    Submission
		wanted bool
	}{
		{"exact tokens", Submission{Tokens: []string{"I", "like", "cooking", "."}}, true},
		{"lowercase tokens", Submission{Tokens: []string{"i", "like", "cooking", "."}}, true},
		{"typed sentence", Submission{Text: "I like cooking."}, true},
		{"typed with space before stop", Submission{Text: "I  like cooking ."}, true},
		{"missing punctuation token", Submission{Tokens: []string{"I", "like", "cooking"}}, false},
		{"wrong order", Submission{Tokens: []string{"like", "I", "cooking", "."}}, false},
		{"extra token", Submission{Tokens: []string{"I", "really", "like", "cooking", "."}}, false},
		{"empty", Submission{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Evaluate(q, tt.sub)
			if v.Correct != tt.wanted {
				t.Errorf("Evaluate(%+v).Correct = %v, want %v", tt.sub, v.Correct, tt.wanted)
			}
			if v.Answer != "I like cooking." {
				t.Errorf("Answer = %q, want %q", v.Answer, "I like cooking.")
			}
		})
	}
}

func TestEvaluateExplanation(t *testing.T) {
	q := models.Question{ID: "q", Kind: models.KindFixIt, Prompt: "p", Expected: "She works."}
	v := Evaluate(q, Submission{Text: "She work."})
	if v.Explanation != "The correct answer is: She works." {
		t.Errorf("Explanation = %q", v.Explanation)
	}

	q.Explanation = "Third person takes -s."
	v = Evaluate(q, Submission{Text: "She work."})
	if v.Explanation != q.Explanation {
		t.Errorf("Explanation = %q, want %q", v.Explanation, q.Explanation)
	}
}

func TestEvaluateUnknownKind(t *testing.T) {
	q := models.Question{ID: "q", Kind: "essay", Prompt: "p"}
	if Evaluate(q, Submission{Text: "anything"}).Correct {
		t.Error("unknown kind should never be correct")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	q := models.Question{ID: "q", Kind: models.KindFixIt, Prompt: "p", Expected: "x", Alternate: "x+y"}
	first := Evaluate(q, Submission{Text: "xxy"})
	for range 5 {
		if got := Evaluate(q, Submission{Text: "xxy"}); got != first {
			t.Fatalf("verdict changed between calls: %+v then %+v", first, got)
		}
	}
}
