package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"txguardian/internal/domain"
	"txguardian/internal/logger"
)

// Client talks to the LLM wrapper service over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an oracle client. The timeout bounds every call; the
// wrapper fronts a hosted model, so latency can be large.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateResponse struct {
	SecurityQuestions []string `json:"security_questions"`
	Contexts          []string `json:"contexts"`
}

type verifyRequest struct {
	UserAnswer string `json:"user_answer"`
	Question   string `json:"question"`
	Context    string `json:"context"`
}

type verifyResponse struct {
	Result string `json:"result"`
}

// GenerateQuestions asks the wrapper to build security questions from the
// given context.
func (c *Client) GenerateQuestions(ctx context.Context, qc QuestionContext) ([]domain.Question, error) {
	if c.baseURL == "" {
		return nil, ErrUnavailable
	}

	var resp generateResponse
	if err := c.post(ctx, "/generate-security-question", qc, &resp); err != nil {
		return nil, err
	}
	if len(resp.SecurityQuestions) == 0 {
		logger.Warn("oracle returned no questions")
		return nil, ErrUnavailable
	}

	questions := make([]domain.Question, 0, len(resp.SecurityQuestions))
	for i, q := range resp.SecurityQuestions {
		qCtx := ""
		if i < len(resp.Contexts) {
			qCtx = resp.Contexts[i]
		}
		questions = append(questions, domain.Question{Text: q, Context: qCtx})
	}
	return questions, nil
}

// GradeAnswer submits a free-text answer for semantic grading. The wrapper
// answers "true" or "false"; anything else is indeterminate and the caller
// must fail closed.
func (c *Client) GradeAnswer(ctx context.Context, q domain.Question, answer string) (domain.Verdict, error) {
	if c.baseURL == "" {
		return domain.VerdictIndeterminate, ErrUnavailable
	}

	req := verifyRequest{
		UserAnswer: answer,
		Question:   q.Text,
		Context:    q.Context,
	}

	var resp verifyResponse
	if err := c.post(ctx, "/verify-security-answer", req, &resp); err != nil {
		return domain.VerdictIndeterminate, err
	}

	switch strings.ToLower(strings.TrimSpace(resp.Result)) {
	case "true":
		return domain.VerdictCorrect, nil
	case "false":
		return domain.VerdictIncorrect, nil
	default:
		logger.Warn("oracle returned ambiguous verdict", "result", resp.Result)
		return domain.VerdictIndeterminate, nil
	}
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("oracle request failed", "path", path, "error", err)
		return ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logger.Warn("oracle returned non-200", "path", path, "status", resp.StatusCode, "body", string(b))
		return ErrUnavailable
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		logger.Warn("oracle response decode failed", "path", path, "error", err)
		return ErrUnavailable
	}
	return nil
}
