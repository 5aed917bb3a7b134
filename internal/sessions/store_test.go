package sessions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreLoadMissingReturnsFreshConversation(t *testing.T) {
	s := setupTestStore(t)

	conv, err := s.Load(context.Background(), "shell-1", 5)
	require.NoError(t, err)
	require.Equal(t, "shell-1", conv.ID)
	require.Equal(t, 5, conv.Limit)
	require.True(t, conv.Empty())
	require.Empty(t, conv.Handle)
}

func TestStoreSaveAndLoadRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	conv := NewConversation("shell-1", 0)
	conv.Handle = "resp_123"
	conv.Begin()
	conv.Append(
		Message{Role: RoleSystem, Content: "instructions"},
		Message{Role: RoleSystem, Content: "UPLOADED_FILES:", Files: []FileRef{{ID: "file-1", Filename: "main.go"}}},
	)
	conv.MarkSent()
	conv.Append(Message{Role: RoleSystem, Content: "ORIGINAL_INTENT: list files"})
	require.NoError(t, s.Save(ctx, conv))

	loaded, err := s.Load(ctx, "shell-1", 0)
	require.NoError(t, err)
	require.Equal(t, "resp_123", loaded.Handle)
	require.Equal(t, 1, loaded.Exchanges)
	require.Equal(t, DefaultExchangeLimit, loaded.Limit)
	require.Equal(t, 2, loaded.Sent)
	require.Equal(t, conv.Messages, loaded.Messages)
	require.Equal(t, []Message{{Role: RoleSystem, Content: "ORIGINAL_INTENT: list files"}}, loaded.Pending())
}

func TestStoreSaveOverwritesMessages(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	conv := NewConversation("shell-1", 3)
	conv.Append(Message{Role: RoleUser, Content: "a"}, Message{Role: RoleUser, Content: "b"})
	require.NoError(t, s.Save(ctx, conv))

	conv.Reset([]Message{{Role: RoleSystem, Content: "SESSION_SUMMARY: did a and b"}})
	require.NoError(t, s.Save(ctx, conv))

	loaded, err := s.Get(ctx, "shell-1")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
	require.Equal(t, 0, loaded.Sent)
	require.Equal(t, 0, loaded.Exchanges)
}

func TestStoreDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	conv := NewConversation("shell-1", 0)
	conv.Append(Message{Role: RoleUser, Content: "a"})
	require.NoError(t, s.Save(ctx, conv))
	require.NoError(t, s.Delete(ctx, "shell-1"))

	_, err := s.Get(ctx, "shell-1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestStorePrune(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	stale := NewConversation("stale", 0)
	stale.UpdatedAt = time.Now().Add(-72 * time.Hour)
	require.NoError(t, s.Save(ctx, stale))

	fresh := NewConversation("fresh", 0)
	require.NoError(t, s.Save(ctx, fresh))

	n, err := s.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = s.Get(ctx, "stale")
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = s.Get(ctx, "fresh")
	require.NoError(t, err)
}
