package recipients

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}
	path := filepath.Join(t.TempDir(), "contacts.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadWorkbookTemplateLayout(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Contact Number", "Contact Name", "Message (Caption)", "Image Path (Optional)"},
		{"+91 95556 11880", "Jinu", "आपका फोटो 📸\n\nचलो Goa", "images/agent1.jpg"},
		{"+919355611880", "", "Plain body", ""},
	})

	records, report, err := Load(path)
	require.NoError(t, err)
	assert.True(t, report.HeaderFound)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "+919555611880", first.Identifier)
	assert.Equal(t, "Jinu", first.DisplayName)
	assert.Equal(t, "images/agent1.jpg", first.ImagePath)
	assert.Equal(t, "Dear Jinu,\n\nआपका फोटो 📸\n\nचलो Goa", first.EffectiveMessage())

	assert.Equal(t, 1, records[1].Index)
	assert.Equal(t, "Plain body", records[1].EffectiveMessage())
}

func TestLoadCSVWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.csv")
	content := "+15550001111,Hello there\n+15550002222,\"Line one\nLine two\"\n,orphan message\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, report, err := Load(path)
	require.NoError(t, err)
	assert.False(t, report.HeaderFound)
	require.Len(t, records, 2)
	assert.Equal(t, "Line one\nLine two", records[1].Message)
	assert.Equal(t, []int{3}, report.SkippedRows)
}

func TestParseThreeColumnLayout(t *testing.T) {
	records, _, err := Parse([][]string{
		{"+15550001111", "caption text", "pics/a.png"},
	}, Report{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "caption text", records[0].Message)
	assert.Equal(t, "pics/a.png", records[0].ImagePath)
	assert.Empty(t, records[0].DisplayName)
}

func TestLoadInvalidIdentifierIsFatal(t *testing.T) {
	_, _, err := Parse([][]string{
		{"Number", "Message"},
		{"+15550001111", "ok"},
		{"12-34", "bad"},
	}, Report{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidIdentifier))
	assert.True(t, strings.Contains(err.Error(), "row 3"))
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.True(t, errors.Is(err, ErrFileNotFound))
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, _, err := Load(path)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestParseEmpty(t *testing.T) {
	_, _, err := Parse([][]string{{"Contact Number", "Message"}}, Report{})
	assert.True(t, errors.Is(err, ErrNoRecipients))
}

func TestReadCSVStripsBOM(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("\ufeff+15550001111,hi\n"))
	require.NoError(t, err)
	assert.Equal(t, "+15550001111", rows[0][0])
}
