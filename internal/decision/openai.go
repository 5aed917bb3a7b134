// Copyright 2026 Robert Macrae. All rights reserved.
// SPDX-License-Identifier: LicenseRef-Proprietary

package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyper-ai-inc/thinkshell/internal/sessions"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-5-nano"
	DefaultTimeout = 60 * time.Second
)

var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required")

// OpenAI implements Service on the OpenAI Responses and Files APIs.
type OpenAI struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewOpenAI constructs a client. Empty baseURL, model and zero timeout pick
// the package defaults.
func NewOpenAI(baseURL, apiKey, model string, timeout time.Duration) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAI{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
	}, nil
}

type responsesRequest struct {
	Model              string        `json:"model"`
	PreviousResponseID string        `json:"previous_response_id,omitempty"`
	Input              []inputItem   `json:"input"`
	Text               *responseText `json:"text,omitempty"`
}

type responseText struct {
	Format responseFormat `json:"format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type inputItem struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type responsesResponse struct {
	ID     string `json:"id"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

func (e *apiError) err() error {
	switch {
	case e.Code == "insufficient_quota":
		return errors.New("openai: quota exhausted or billing not enabled")
	case e.Message != "":
		return fmt.Errorf("openai: %s", e.Message)
	case e.Code != "":
		return fmt.Errorf("openai: %s", e.Code)
	case e.Type != "":
		return fmt.Errorf("openai: %s", e.Type)
	}
	return errors.New("openai: unknown error")
}

// Respond sends req.Messages as one Responses API turn chained onto
// req.Handle.
func (o *OpenAI) Respond(ctx context.Context, req Request) (Reply, error) {
	body := responsesRequest{
		Model:              o.model,
		PreviousResponseID: req.Handle,
		Input:              toInput(req.Messages),
	}
	if req.Format == FormatJSON {
		body.Text = &responseText{Format: responseFormat{Type: "json_object"}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Reply{}, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/responses", bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out responsesResponse
	if err := o.do(httpReq, &out); err != nil {
		return Reply{}, err
	}
	if out.Error != nil {
		return Reply{}, out.Error.err()
	}

	var text strings.Builder
	for _, item := range out.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" {
				text.WriteString(c.Text)
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Reply{}, errors.New("openai: no output_text in response")
	}
	return Reply{Handle: out.ID, Text: text.String()}, nil
}

// StageFile uploads the file at path to /v1/files and returns its id.
func (o *OpenAI) StageFile(ctx context.Context, path, purpose string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("purpose", purpose); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/files", &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		ID    string    `json:"id"`
		Error *apiError `json:"error"`
	}
	if err := o.do(httpReq, &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", out.Error.err()
	}
	if out.ID == "" {
		return "", errors.New("openai: upload returned no file id")
	}
	return out.ID, nil
}

func (o *OpenAI) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	res, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		var wrapped struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(b, &wrapped) == nil && wrapped.Error != nil {
			return fmt.Errorf("status %d: %w", res.StatusCode, wrapped.Error.err())
		}
		return fmt.Errorf("openai: status %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toInput(msgs []sessions.Message) []inputItem {
	items := make([]inputItem, 0, len(msgs))
	for _, m := range msgs {
		textType := "input_text"
		if m.Role == sessions.RoleAssistant {
			textType = "output_text"
		}
		parts := []contentPart{{Type: textType, Text: m.Content}}
		for _, f := range m.Files {
			parts = append(parts, contentPart{Type: "input_file", FileID: f.ID, Filename: f.Filename})
		}
		items = append(items, inputItem{Role: string(m.Role), Content: parts})
	}
	return items
}
