package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_UpdateAndReadSection(t *testing.T) {
	mem := NewMemory(t.TempDir())

	require.NoError(t, mem.UpdateSection(SectionArchitecture, "React SPA with Vite."))
	assert.Equal(t, "React SPA with Vite.", mem.Section(SectionArchitecture))
}

func TestMemory_UpdateReplacesExistingSection(t *testing.T) {
	mem := NewMemory(t.TempDir())

	require.NoError(t, mem.UpdateSection(SectionFileTree, "src/App.tsx"))
	require.NoError(t, mem.UpdateSection(SectionFileTree, "src/App.tsx\nsrc/Hello.tsx"))

	assert.Equal(t, "src/App.tsx\nsrc/Hello.tsx", mem.Section(SectionFileTree))
}

func TestMemory_SectionsSurviveEachOther(t *testing.T) {
	mem := NewMemory(t.TempDir())

	require.NoError(t, mem.UpdateSection(SectionArchitecture, "arch"))
	require.NoError(t, mem.UpdateSection(SectionComponents, "Button, Card"))
	require.NoError(t, mem.UpdateSection(SectionArchitecture, "arch v2"))

	assert.Equal(t, "arch v2", mem.Section(SectionArchitecture))
	assert.Equal(t, "Button, Card", mem.Section(SectionComponents))
}

func TestMemory_MissingFile(t *testing.T) {
	mem := NewMemory(t.TempDir())
	assert.Empty(t, mem.Read())
	assert.Empty(t, mem.Section(SectionArchitecture))
	assert.Empty(t, mem.Serialize())
}

func TestHistory_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	msgs, err := LoadHistory(dir)
	require.NoError(t, err)
	assert.Nil(t, msgs)

	require.NoError(t, SaveHistory(dir, nil))
	msgs, err = LoadHistory(dir)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMetadata_PreservesTitleOnEmptyUpdate(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, SaveMetadata(dir, "sess-1", "Todo App"))
	require.NoError(t, SaveMetadata(dir, "sess-1", ""))

	meta, err := LoadMetadata(dir)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "Todo App", meta.Title)
}
