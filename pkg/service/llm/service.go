package llm

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/shinobi/pkg/domain/model"
	"github.com/secmon-lab/shinobi/pkg/domain/types"
	"github.com/secmon-lab/shinobi/pkg/utils/logging"
)

// Error tags for categorization
var (
	ErrTagInvalidJSON     = goerr.NewTag("invalid_json")
	ErrTagMissingField    = goerr.NewTag("missing_field")
	ErrTagEmptyResponse   = goerr.NewTag("empty_response")
	ErrTagTemplateFailure = goerr.NewTag("template_failure")
)

//go:embed templates/*.md
var templateFS embed.FS

// EmbeddingDimension is the vector size used for issue embeddings.
// All indexed vectors and query vectors must share this dimension.
const EmbeddingDimension = 768

// Service handles LLM operations for issue triage
type Service struct {
	llmClient gollem.LLMClient
}

// triageResponse is the structured response expected from the LLM
type triageResponse struct {
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
}

// severityGuide is one severity entry rendered into the prompt
type severityGuide struct {
	Label       string
	Description string
}

// triageTemplateData contains data for the triage analysis template
type triageTemplateData struct {
	Severities []severityGuide
	Repo       string
	Title      string
	Body       string
}

// NewService creates a new LLM triage service
func NewService(llmClient gollem.LLMClient) *Service {
	return &Service{
		llmClient: llmClient,
	}
}

// AnalyzeIssue classifies a GitHub issue into a severity level and
// produces a one-sentence summary
func (s *Service) AnalyzeIssue(ctx context.Context, issue *model.Issue) (*model.TriageAnalysis, error) {
	if issue == nil {
		return nil, goerr.New("issue is nil")
	}
	if err := issue.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid issue")
	}

	prompt, err := s.renderTriageTemplate(issue)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to render triage analysis template",
			goerr.T(ErrTagTemplateFailure))
	}

	session, err := s.llmClient.NewSession(ctx, gollem.WithSessionContentType(gollem.ContentTypeJSON))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	response, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate LLM response")
	}

	if len(response.Texts) == 0 || response.Texts[0] == "" {
		return nil, goerr.New("empty response from LLM",
			goerr.T(ErrTagEmptyResponse))
	}

	var parsed triageResponse
	if err := json.Unmarshal([]byte(response.Texts[0]), &parsed); err != nil {
		return nil, goerr.Wrap(err, "failed to parse LLM response as JSON",
			goerr.V("response", response.Texts[0]),
			goerr.T(ErrTagInvalidJSON))
	}

	severity, ok := types.ParseSeverity(parsed.Severity)
	if !ok {
		return nil, goerr.New("LLM response has unknown severity",
			goerr.T(ErrTagMissingField),
			goerr.V("severity", parsed.Severity))
	}
	if parsed.Summary == "" {
		return nil, goerr.New("LLM response missing summary",
			goerr.T(ErrTagMissingField),
			goerr.V("field", "summary"))
	}

	logging.From(ctx).Debug("Issue analyzed",
		"repo", issue.Repo,
		"number", issue.Number,
		"severity", severity,
	)

	return &model.TriageAnalysis{
		Severity: severity,
		Summary:  parsed.Summary,
	}, nil
}

// EmbedIssue embeds an issue title and body into a single vector for
// nearest-neighbor search
func (s *Service) EmbedIssue(ctx context.Context, title, body string) ([]float64, error) {
	input := strings.TrimSpace(title + "\n\n" + body)
	if input == "" {
		return nil, goerr.New("issue text is empty")
	}

	embeddings, err := s.llmClient.GenerateEmbedding(ctx, EmbeddingDimension, []string{input})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("empty embedding from LLM",
			goerr.T(ErrTagEmptyResponse))
	}

	return embeddings[0], nil
}

// DraftDuplicateComment builds the comment proposed for a duplicate
// issue. The text is deterministic so reviewers always see the same
// shape before approving it.
func DraftDuplicateComment(match *model.IssueMatch) string {
	return fmt.Sprintf(
		"This issue looks like a duplicate of #%d (%q, similarity %.2f). "+
			"Closing in favor of the earlier report; please follow up there if this is a distinct problem.",
		match.Number.Int(), match.Title, match.Similarity)
}

// renderTriageTemplate renders the triage analysis prompt for an issue
func (s *Service) renderTriageTemplate(issue *model.Issue) (string, error) {
	templateContent, err := templateFS.ReadFile("templates/triage_analysis.md")
	if err != nil {
		return "", goerr.Wrap(err, "failed to read triage analysis template")
	}

	tmpl, err := template.New("triage_analysis").Parse(string(templateContent))
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse triage analysis template")
	}

	guides := make([]severityGuide, 0, len(types.Severities()))
	for _, sev := range types.Severities() {
		guides = append(guides, severityGuide{
			Label:       sev.Label(),
			Description: sev.Description(),
		})
	}

	data := triageTemplateData{
		Severities: guides,
		Repo:       string(issue.Repo),
		Title:      issue.Title,
		Body:       issue.Body,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute triage analysis template")
	}

	return buf.String(), nil
}
