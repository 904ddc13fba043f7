package recipients

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTemplateLoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, WriteTemplate(path))

	recs, report, err := Load(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, report.HeaderFound)

	rec := recs[0]
	assert.Equal(t, "+919876543210", rec.Identifier)
	assert.Equal(t, "Priya", rec.DisplayName)
	assert.Equal(t, "images/offer.jpg", rec.ImagePath)
	assert.Equal(t, 2, rec.Row)
	assert.Contains(t, rec.Message, "\n")
}
