package db

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droverhq/drover/internal/agent/conv"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetOrCreateSessionIsIdempotent(t *testing.T) {
	store := openTestStore(t)

	first, err := store.GetOrCreateSession("main")
	require.NoError(t, err)
	second, err := store.GetOrCreateSession("main")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := store.GetOrCreateSession("scratch")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestMessagesRoundTrip(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.GetOrCreateSession("main")
	require.NoError(t, err)

	log := []conv.Message{
		conv.NewUserText("take a screenshot"),
		{Role: conv.RoleAssistant, Content: []conv.Block{
			conv.ThinkingBlock{Thinking: "need the screenshot tool", Signature: "sig-abc"},
			conv.ToolUseBlock{ID: "toolu_1", Name: "screenshot", Input: json.RawMessage(`{}`)},
		}},
		conv.NewToolResults([]conv.ToolResultBlock{{
			ToolUseID: "toolu_1",
			Content: []conv.Block{
				conv.ImageBlock{MediaType: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}},
				conv.TextBlock{Text: "<system>display 0</system>"},
			},
		}}),
	}
	for _, msg := range log {
		require.NoError(t, store.AppendMessage(sess.ID, msg))
	}

	got, err := store.Messages(sess.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, log, got)
}

func TestReplaceMessages(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.GetOrCreateSession("main")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendMessage(sess.ID, conv.NewUserText("old")))
	}
	compacted := []conv.Message{
		{Role: conv.RoleSystem, Content: []conv.Block{conv.TextBlock{Text: "[Earlier conversation summary]\nuser: old"}}},
		conv.NewUserText("new"),
	}
	require.NoError(t, store.ReplaceMessages(sess.ID, compacted))

	got, err := store.Messages(sess.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, conv.RoleSystem, got[0].Role)
}

func TestResetAndDelete(t *testing.T) {
	store := openTestStore(t)
	sess, err := store.GetOrCreateSession("main")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(sess.ID, conv.NewUserText("hi")))

	require.NoError(t, store.ResetSession(sess.ID))
	got, err := store.Messages(sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, store.DeleteSession(sess.ID))
	sessions, err := store.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestListSessionsOrder(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetOrCreateSession("a")
	require.NoError(t, err)
	_, err = store.GetOrCreateSession("b")
	require.NoError(t, err)

	sessions, err := store.ListSessions()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
