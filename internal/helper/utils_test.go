package helper

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	id, err := GenerateUUID()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
}

func TestFileSafeName(t *testing.T) {
	assert.Equal(t, "pdf-annual-report-2024-pdf", FileSafeName("PDF: Annual Report 2024.pdf"))
	assert.Equal(t, "web-url-https-example-com-a-b", FileSafeName("web url: https://example.com/a?b"))
	assert.Equal(t, "unnamed", FileSafeName("::"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitList(" a, b,,c ,"))
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , "))
}

func TestCreateFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "snapshots")
	require.NoError(t, CreateFolder(dir))
	assert.DirExists(t, dir)
}
