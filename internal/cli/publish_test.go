package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

func TestPrintAssessment(t *testing.T) {
	a := &model.FidelityAssessment{
		Score:           67,
		AISummary:       "Async work wins.",
		PreservedClaims: []string{"Async beats meetings", "Write decisions down"},
		LostClaims:      []string{"Meetings need agendas"},
		Suggestions:     []string{"Lead with the agenda claim"},
		Provider:        "mock",
		Model:           "mock-1",
	}

	var buf bytes.Buffer
	printAssessment(&buf, "issue-42.md", "one two three", a)
	out := buf.String()

	for _, want := range []string{
		"AI Penetration: 67/100  (issue-42.md)",
		"Claims preserved: 2/3",
		"Reading time: ~1 min",
		"AI summary (mock/mock-1)",
		"✓ Async beats meetings",
		"✗ Meetings need agendas",
		"- Lead with the agenda claim",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
