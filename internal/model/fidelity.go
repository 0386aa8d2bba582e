package model

// FidelityAssessment measures how many of the author's key claims survive
// compression by a summarization model. PreservedClaims and LostClaims
// partition the key claims the assessment was run against.
type FidelityAssessment struct {
	Score           int      `json:"score"` // round(100 * preserved / total)
	AISummary       string   `json:"aiSummary"`
	PreservedClaims []string `json:"preservedClaims"`
	LostClaims      []string `json:"lostClaims"`
	Suggestions     []string `json:"suggestions"`
	Provider        string   `json:"provider,omitempty"`
	Model           string   `json:"model,omitempty"`
}

// Total returns the number of key claims covered by the assessment
func (f *FidelityAssessment) Total() int {
	return len(f.PreservedClaims) + len(f.LostClaims)
}
