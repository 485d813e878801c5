// Package client talks to the sync gateway from the student side. It only
// ever sees sanitized exam projections and never sends score fields.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"exam-sync-service/internal/domain"
)

// Gateway is the HTTP client for the exam sync server.
type Gateway struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchExam retrieves the sanitized student projection of a published exam.
func (g *Gateway) FetchExam(ctx context.Context, code string) (domain.Exam, error) {
	endpoint := g.baseURL + "/exams?code=" + url.QueryEscape(domain.NormalizeCode(code)) + "&public=1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Exam{}, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return domain.Exam{}, fmt.Errorf("fetch exam: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Exam{}, domain.ErrExamNotFound
	case http.StatusForbidden:
		return domain.Exam{}, domain.ErrExamNotPublished
	default:
		return domain.Exam{}, fmt.Errorf("fetch exam: %s", readError(resp))
	}

	var exam domain.Exam
	if err := json.NewDecoder(resp.Body).Decode(&exam); err != nil {
		return domain.Exam{}, fmt.Errorf("decode exam: %w", err)
	}
	return exam, nil
}

// SubmitResult posts a terminal attempt sync and returns the authoritative
// graded result.
func (g *Gateway) SubmitResult(ctx context.Context, sub domain.Submission) (domain.Result, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return domain.Result{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/submit-exam", bytes.NewReader(body))
	if err != nil {
		return domain.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return domain.Result{}, fmt.Errorf("submit result: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Result{}, domain.ErrExamNotFound
	default:
		return domain.Result{}, fmt.Errorf("submit result: %s", readError(resp))
	}

	var result domain.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Result{}, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}

func readError(resp *http.Response) string {
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}
	if body.Details != "" {
		return body.Error + ": " + body.Details
	}
	return body.Error
}
