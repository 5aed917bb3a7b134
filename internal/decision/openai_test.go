package decision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyper-ai-inc/thinkshell/internal/sessions"
)

func TestRespondChainsAndRequestsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/responses", r.URL.Path)
		require.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "resp_2",
			"output": [
				{"type": "reasoning", "content": []},
				{"type": "message", "content": [{"type": "output_text", "text": "{\"action\":\"BLOCK\"}"}]}
			]
		}`)
	}))
	defer srv.Close()

	o, err := NewOpenAI(srv.URL, "key", "test-model", 5*time.Second)
	require.NoError(t, err)

	reply, err := o.Respond(context.Background(), Request{
		Handle: "resp_1",
		Messages: []sessions.Message{
			{Role: sessions.RoleUser, Content: "ORIGINAL_INTENT: list files"},
			{Role: sessions.RoleAssistant, Content: `{"action":"INSPECT"}`},
			{Role: sessions.RoleUser, Content: "UPLOADED_FILES: {}", Files: []sessions.FileRef{{ID: "file_1", Filename: "a.txt"}}},
		},
		Format: FormatJSON,
	})
	require.NoError(t, err)
	require.Equal(t, Reply{Handle: "resp_2", Text: `{"action":"BLOCK"}`}, reply)

	require.Equal(t, "test-model", got["model"])
	require.Equal(t, "resp_1", got["previous_response_id"])
	require.Equal(t, map[string]any{"format": map[string]any{"type": "json_object"}}, got["text"])

	input := got["input"].([]any)
	require.Len(t, input, 3)
	first := input[0].(map[string]any)["content"].([]any)[0].(map[string]any)
	require.Equal(t, "input_text", first["type"])
	second := input[1].(map[string]any)["content"].([]any)[0].(map[string]any)
	require.Equal(t, "output_text", second["type"])
	third := input[2].(map[string]any)["content"].([]any)
	require.Len(t, third, 2)
	require.Equal(t, map[string]any{"type": "input_file", "file_id": "file_1", "filename": "a.txt"}, third[1])
}

func TestRespondOmitsHandleAndFormatForText(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"id":"resp_9","output":[{"type":"message","content":[{"type":"output_text","text":"summary"}]}]}`)
	}))
	defer srv.Close()

	o, err := NewOpenAI(srv.URL, "key", "", 0)
	require.NoError(t, err)
	reply, err := o.Respond(context.Background(), Request{Messages: []sessions.Message{{Role: sessions.RoleUser, Content: "x"}}})
	require.NoError(t, err)
	require.Equal(t, "summary", reply.Text)

	_, hasPrev := got["previous_response_id"]
	require.False(t, hasPrev)
	_, hasText := got["text"]
	require.False(t, hasText)
	require.Equal(t, DefaultModel, got["model"])
}

func TestRespondSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	o, err := NewOpenAI(srv.URL, "bad", "", 0)
	require.NoError(t, err)
	_, err = o.Respond(context.Background(), Request{})
	require.ErrorContains(t, err, "status 401")
	require.ErrorContains(t, err, "Incorrect API key")
}

func TestRespondTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	o, err := NewOpenAI(srv.URL, "key", "", 50*time.Millisecond)
	require.NoError(t, err)
	_, err = o.Respond(context.Background(), Request{})
	require.Error(t, err)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "  ", "", 0)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestStageFileUploadsMultipart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/files", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "assistants", r.FormValue("purpose"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		require.Equal(t, "notes.txt", hdr.Filename)
		b, _ := io.ReadAll(f)
		require.Equal(t, "hello", string(b))
		_, _ = io.WriteString(w, `{"id":"file_abc","object":"file"}`)
	}))
	defer srv.Close()

	o, err := NewOpenAI(srv.URL, "key", "", 0)
	require.NoError(t, err)
	id, err := o.StageFile(context.Background(), path, "assistants")
	require.NoError(t, err)
	require.Equal(t, "file_abc", id)
}

func TestStageFileMissingPath(t *testing.T) {
	o, err := NewOpenAI("http://127.0.0.1:1", "key", "", 0)
	require.NoError(t, err)
	_, err = o.StageFile(context.Background(), filepath.Join(t.TempDir(), "nope"), "assistants")
	require.ErrorIs(t, err, os.ErrNotExist)
}
