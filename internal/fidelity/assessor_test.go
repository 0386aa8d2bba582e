package fidelity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/yaoqinxue-cmd/BriStack/internal/llm"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
	"github.com/yaoqinxue-cmd/BriStack/internal/worker"
)

// MockProvider implements llm.Provider with canned responses, one per call
type MockProvider struct {
	name      string
	responses []string
	errs      []error
	requests  []llm.CompletionRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	call := len(m.requests)
	m.requests = append(m.requests, req)

	if call < len(m.errs) && m.errs[call] != nil {
		return nil, m.errs[call]
	}
	if call >= len(m.responses) {
		return nil, errors.New("unexpected call")
	}
	return &llm.CompletionResponse{Text: m.responses[call], Model: "mock-1"}, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return true
}

var fiveClaims = []string{
	"Remote teams ship faster with written decisions",
	"Meetings should have an owner",
	"Async updates replace status meetings",
	"Documentation is a product",
	"Time zones are an advantage",
}

func newAssessor(p llm.Provider) *Assessor {
	return NewAssessor(p, model.DefaultConfig().Fidelity)
}

func TestAssess_FourOfFivePreserved(t *testing.T) {
	provider := &MockProvider{
		name: "mock",
		responses: []string{
			"Remote teams should write decisions down and replace status meetings with async updates.",
			`Here is my evaluation:
{
  "results": [
    {"index": 1, "point": "Remote teams ship faster with written decisions", "preserved": true},
    {"index": 2, "point": "Meetings should have an owner", "preserved": false},
    {"index": 3, "point": "Async updates replace status meetings", "preserved": true},
    {"index": 4, "point": "Documentation is a product", "preserved": true},
    {"index": 5, "point": "Time zones are an advantage", "preserved": true}
  ],
  "suggestions": ["State the meeting-owner rule in the opening paragraph."]
}
Hope this helps!`,
		},
	}

	result := newAssessor(provider).Assess(context.Background(), "full article text", fiveClaims)
	if result == nil {
		t.Fatal("Expected assessment, got nil")
	}

	if result.Score != 80 {
		t.Errorf("Expected score 80, got %d", result.Score)
	}
	if len(result.LostClaims) != 1 || result.LostClaims[0] != "Meetings should have an owner" {
		t.Errorf("Unexpected lost claims: %v", result.LostClaims)
	}
	if len(result.PreservedClaims) != 4 {
		t.Errorf("Expected 4 preserved claims, got %v", result.PreservedClaims)
	}
	if !strings.HasPrefix(result.AISummary, "Remote teams should") {
		t.Errorf("Expected verbatim summary, got %q", result.AISummary)
	}
	if len(result.Suggestions) != 1 {
		t.Errorf("Expected 1 suggestion, got %v", result.Suggestions)
	}
	if result.Provider != "mock" || result.Model != "mock-1" {
		t.Errorf("Unexpected provenance: %s/%s", result.Provider, result.Model)
	}
}

func TestAssess_PromptsAndBudgets(t *testing.T) {
	provider := &MockProvider{
		name:      "mock",
		responses: []string{"summary", `{"results": [], "suggestions": []}`},
	}
	cfg := model.DefaultConfig().Fidelity
	long := strings.Repeat("x", cfg.MaxContentChars+500)

	NewAssessor(provider, cfg).Assess(context.Background(), long, []string{"claim one", "claim two"})

	if len(provider.requests) != 2 {
		t.Fatalf("Expected 2 oracle calls, got %d", len(provider.requests))
	}

	summaryReq, verifyReq := provider.requests[0], provider.requests[1]
	if summaryReq.MaxTokens != cfg.SummaryTokens || verifyReq.MaxTokens != cfg.VerifyTokens {
		t.Errorf("Unexpected token budgets: %d, %d", summaryReq.MaxTokens, verifyReq.MaxTokens)
	}
	if strings.Count(summaryReq.Prompt, "x") > cfg.MaxContentChars {
		t.Error("Expected content to be truncated before compression")
	}
	if !strings.Contains(verifyReq.Prompt, "1. claim one\n2. claim two") {
		t.Errorf("Expected enumerated claims in verify prompt, got:\n%s", verifyReq.Prompt)
	}
	if !strings.Contains(verifyReq.Prompt, "summary") {
		t.Error("Expected AI summary in verify prompt")
	}
}

func TestAssess_ReturnsNil(t *testing.T) {
	tests := []struct {
		provider llm.Provider
		claims   []string
		desc     string
	}{
		{nil, fiveClaims, "No oracle configured"},
		{&MockProvider{name: "mock"}, nil, "No claims"},
		{&MockProvider{name: "mock"}, []string{}, "Empty claims"},
		{&MockProvider{name: "mock"}, []string{"  ", ""}, "Blank claims"},
		{&MockProvider{name: "mock", errs: []error{errors.New("401 unauthorized")}}, fiveClaims, "Compression stage error"},
		{&MockProvider{name: "mock", responses: []string{"summary"}, errs: []error{nil, context.DeadlineExceeded}}, fiveClaims, "Verification stage timeout"},
		{&MockProvider{name: "mock", responses: []string{"summary", `{"results": "none"}`}}, fiveClaims, "JSON of the wrong shape"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if result := newAssessor(tt.provider).Assess(context.Background(), "content", tt.claims); result != nil {
				t.Errorf("Expected nil, got %+v", result)
			}
		})
	}
}

func TestAssess_UnparseableVerification(t *testing.T) {
	provider := &MockProvider{
		name:      "mock",
		responses: []string{"summary", "I think most of the claims were preserved."},
	}

	result := newAssessor(provider).Assess(context.Background(), "content", fiveClaims)
	if result == nil {
		t.Fatal("Expected assessment, got nil")
	}
	if result.Score != UnparsedScore {
		t.Errorf("Expected score %d, got %d", UnparsedScore, result.Score)
	}
	if len(result.LostClaims) != len(fiveClaims) || len(result.PreservedClaims) != 0 {
		t.Errorf("Expected every claim lost, got %v / %v", result.PreservedClaims, result.LostClaims)
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0] != UnparsedSuggestion {
		t.Errorf("Expected parse-failure suggestion, got %v", result.Suggestions)
	}
}

func TestAssess_Partition(t *testing.T) {
	claims := []string{"Alpha claim", "Beta claim", "Gamma claim", "Delta claim"}

	tests := []struct {
		response string
		desc     string
	}{
		{`{"results": [{"index": 1, "preserved": true}, {"index": 2, "preserved": false}, {"index": 3, "preserved": true}, {"index": 4, "preserved": false}]}`, "All judged by index"},
		{`{"results": [{"point": "gamma   CLAIM", "preserved": true}, {"point": "Alpha claim", "preserved": true}]}`, "Partial judgments by text"},
		{`{"results": [{"index": 1, "preserved": true}, {"index": 1, "preserved": false}, {"point": "Unknown claim", "preserved": true}]}`, "Duplicate and unknown judgments"},
		{`{"results": [{"index": 9, "point": "Delta claim", "preserved": true}, {"index": 0, "preserved": true}]}`, "Out-of-range indices"},
		{`{"results": []}`, "No judgments"},
		{`{"suggestions": ["Lead with the claim"]}`, "Missing results"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			provider := &MockProvider{name: "mock", responses: []string{"summary", tt.response}}
			result := newAssessor(provider).Assess(context.Background(), "content", claims)
			if result == nil {
				t.Fatal("Expected assessment, got nil")
			}

			all := append(append([]string{}, result.PreservedClaims...), result.LostClaims...)
			sort.Strings(all)
			want := append([]string{}, claims...)
			sort.Strings(want)

			if strings.Join(all, "|") != strings.Join(want, "|") {
				t.Errorf("Claims not partitioned: preserved=%v lost=%v", result.PreservedClaims, result.LostClaims)
			}
			if result.Score != Score(len(result.PreservedClaims), len(claims)) {
				t.Errorf("Score %d inconsistent with %d preserved", result.Score, len(result.PreservedClaims))
			}
		})
	}
}

func TestAssess_JudgmentOrderAndDuplicates(t *testing.T) {
	provider := &MockProvider{
		name: "mock",
		responses: []string{"summary", `{"results": [
			{"index": 3, "preserved": false},
			{"index": 1, "preserved": true}
		]}`},
	}

	result := newAssessor(provider).Assess(context.Background(), "content", []string{" A ", "B", "A", "C", ""})
	if result == nil {
		t.Fatal("Expected assessment, got nil")
	}

	// Claims are normalised to A, B, C before judging
	if strings.Join(result.PreservedClaims, ",") != "A" {
		t.Errorf("Unexpected preserved: %v", result.PreservedClaims)
	}
	if strings.Join(result.LostClaims, ",") != "C,B" {
		t.Errorf("Expected oracle order then unjudged claims, got %v", result.LostClaims)
	}
	if result.Score != 33 {
		t.Errorf("Expected score 33, got %d", result.Score)
	}
}

func TestAssess_RateLimited(t *testing.T) {
	provider := &MockProvider{name: "mock", responses: []string{"summary", `{"results": []}`}}
	limiter := worker.NewLimiter(0.001, 1)
	limiter.Allow("mock") // exhaust the only token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assessor := NewAssessor(provider, model.DefaultConfig().Fidelity, WithLimiter(limiter))
	if result := assessor.Assess(ctx, "content", fiveClaims); result != nil {
		t.Errorf("Expected nil when the rate limit wait is cancelled, got %+v", result)
	}
	if len(provider.requests) != 0 {
		t.Errorf("Expected no oracle calls, got %d", len(provider.requests))
	}
}

func TestAssessor_Enabled(t *testing.T) {
	if newAssessor(nil).IsEnabled() {
		t.Error("Expected assessor without provider to be disabled")
	}
	if newAssessor(nil).ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}
	if !newAssessor(&MockProvider{name: "mock"}).IsEnabled() {
		t.Error("Expected assessor with provider to be enabled")
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		preserved, total, expected int
	}{
		{4, 5, 80},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{0, 4, 0},
		{3, 3, 100},
		{0, 0, 0},
	}

	for _, tt := range tests {
		if got := Score(tt.preserved, tt.total); got != tt.expected {
			t.Errorf("Score(%d, %d) = %d, want %d", tt.preserved, tt.total, got, tt.expected)
		}
	}
}
