package questionpack

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFallbackQuestionDeterministic(t *testing.T) {
	pack := DefaultPack()

	for i := 0; i < 12; i++ {
		first := pack.FallbackQuestion(i)
		second := pack.FallbackQuestion(i)
		if first != second {
			t.Errorf("FallbackQuestion(%d) not deterministic", i)
		}
	}

	// Index wraps around the rotation.
	if pack.FallbackQuestion(0) != pack.FallbackQuestion(len(pack.Fallbacks)) {
		t.Error("FallbackQuestion() did not wrap around rotation")
	}

	if pack.FallbackQuestion(-1) != pack.FallbackQuestion(0) {
		t.Error("negative index should clamp to 0")
	}
}

func TestLoadPackFillsGaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	content := `roles:
  site reliability engineer:
    - "Tell me about an incident you ran point on."
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pack, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(pack.Fallbacks) == 0 {
		t.Error("fallbacks not filled from defaults")
	}
	if pack.CandidateQuestionFallback == "" {
		t.Error("candidate question fallback not filled from defaults")
	}
	if qs := pack.SeedQuestions("Site Reliability Engineer"); len(qs) != 1 {
		t.Errorf("SeedQuestions() = %v, want one custom question", qs)
	}
}

func TestSeedQuestionsLooseMatch(t *testing.T) {
	pack := DefaultPack()

	if qs := pack.SeedQuestions("Senior Software Engineer"); len(qs) == 0 {
		t.Error("expected loose match for 'Senior Software Engineer'")
	}
	if qs := pack.SeedQuestions("astronaut"); qs != nil {
		t.Errorf("SeedQuestions(astronaut) = %v, want nil", qs)
	}
}

func TestLoadPackMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing pack file")
	}
}
