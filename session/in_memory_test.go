package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/deepresearch/core"
)

func TestInMemoryStore_CreateAndGet(t *testing.T) {
	store := NewInMemoryStore()

	created, err := store.Create("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", created.ID)
	assert.Equal(t, core.StatusRunning, created.GetStatus())

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)

	// Duplicate ids are a defect, not a silent overwrite.
	_, err = store.Create("s1")
	assert.Error(t, err)

	_, err = store.Get("missing")
	assert.Error(t, err)
}

func TestInMemoryStore_AppendIsolation(t *testing.T) {
	store := NewInMemoryStore()
	sess, err := store.Create("s1")
	require.NoError(t, err)

	require.NoError(t, store.Append("s1", core.NewUserMessage("hi")))

	// The clone handed out at creation must not observe later appends.
	assert.Equal(t, 0, sess.Len())

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
}

func TestInMemoryStore_CheckpointRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Create("s1")
	require.NoError(t, err)
	require.NoError(t, store.Append("s1",
		core.NewUserMessage("what is the capital of France?"),
		core.NewAgentMessage("synthesis_expert", "Paris."),
	))
	require.NoError(t, store.SetStatus("s1", core.StatusCompleted))

	data, err := store.Checkpoint("s1")
	require.NoError(t, err)

	restored, err := NewInMemoryStore().Restore(data)
	require.NoError(t, err)
	assert.Equal(t, "s1", restored.ID)
	assert.Equal(t, core.StatusCompleted, restored.GetStatus())
	require.Equal(t, 2, restored.Len())

	text, ok := restored.LastAgentText()
	require.True(t, ok)
	assert.Equal(t, "Paris.", text)
}

func TestInMemoryStore_RestoreRejectsGarbage(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Restore([]byte("not json"))
	assert.Error(t, err)
	_, err = store.Restore([]byte("{}"))
	assert.Error(t, err)
}
