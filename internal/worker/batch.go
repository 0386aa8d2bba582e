package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yaoqinxue-cmd/BriStack/internal/content"
	"github.com/yaoqinxue-cmd/BriStack/internal/model"
)

// ClaimsExt is the extension of the key-claims file paired with an issue
const ClaimsExt = ".claims"

// ErrNoClaims is reported for an issue without a claims file
var ErrNoClaims = errors.New("no claims file")

// issueExts are the issue formats picked up by AssessDir
var issueExts = map[string]bool{
	".html": true,
	".htm":  true,
	".md":   true,
	".txt":  true,
}

// Assessor scores an issue's text against its key claims
type Assessor interface {
	Assess(ctx context.Context, text string, keyClaims []string) *model.FidelityAssessment
}

// AssessJob assesses one issue file
type AssessJob struct {
	Path       string
	ClaimsPath string
	Assessor   Assessor
}

// Execute reads the issue and its claims and runs the assessment
func (j *AssessJob) Execute(ctx context.Context) Result {
	res := &AssessResult{Path: j.Path}

	text, err := ReadIssueText(j.Path)
	if err != nil {
		res.Error = err
		return res
	}

	claims, err := ReadClaimsFile(j.ClaimsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%s: %w", j.Path, ErrNoClaims)
		}
		res.Error = err
		return res
	}

	res.Claims = len(claims)
	res.Assessment = j.Assessor.Assess(ctx, text, claims)
	return res
}

// AssessResult is the outcome of an AssessJob. Assessment is nil when the
// oracle was unavailable; that is not an error.
type AssessResult struct {
	Path       string
	Claims     int
	Assessment *model.FidelityAssessment
	Error      error
}

// GetError returns the error from the assessment
func (r *AssessResult) GetError() error {
	return r.Error
}

// BatchAssessor assesses many issues concurrently
type BatchAssessor struct {
	assessor    Assessor
	concurrency int
}

// NewBatchAssessor creates a new batch assessor
func NewBatchAssessor(assessor Assessor, concurrency int) *BatchAssessor {
	return &BatchAssessor{
		assessor:    assessor,
		concurrency: concurrency,
	}
}

// AssessFiles assesses issue files, each paired with <name>.claims next to
// it. Results are sorted by path.
func (b *BatchAssessor) AssessFiles(ctx context.Context, paths []string) []*AssessResult {
	if len(paths) == 0 {
		return []*AssessResult{}
	}

	batch := make([]Job, len(paths))
	for i, path := range paths {
		batch[i] = &AssessJob{
			Path:       path,
			ClaimsPath: ClaimsPathFor(path),
			Assessor:   b.assessor,
		}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	results := pool.Run(batch)

	out := make([]*AssessResult, len(results))
	for i, result := range results {
		out[i] = result.(*AssessResult)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// AssessDir assesses every issue file directly inside dir
func (b *BatchAssessor) AssessDir(ctx context.Context, dir string) ([]*AssessResult, error) {
	paths, err := FindIssues(dir)
	if err != nil {
		return nil, err
	}
	return b.AssessFiles(ctx, paths), nil
}

// FindIssues lists the issue files directly inside dir
func FindIssues(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !issueExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// ClaimsPathFor returns the claims file paired with an issue file
func ClaimsPathFor(issuePath string) string {
	return strings.TrimSuffix(issuePath, filepath.Ext(issuePath)) + ClaimsExt
}

// ReadIssueText reads an issue file, converting HTML to plain text
func ReadIssueText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read issue: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err := content.PlainText(string(data))
		if err != nil {
			return "", fmt.Errorf("convert %s: %w", path, err)
		}
		return text, nil
	default:
		return string(data), nil
	}
}

// ReadClaimsFile reads key claims from a file (one per line)
func ReadClaimsFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
