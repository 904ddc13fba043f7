package recipients

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrFileNotFound is returned when the recipient file does not exist.
	ErrFileNotFound = errors.New("recipients: file not found")
	// ErrNoRecipients is returned when a file parses but yields no usable rows.
	ErrNoRecipients = errors.New("recipients: no recipients found")
	// ErrUnsupportedFormat is returned for extensions other than xlsx/xlsm/csv.
	ErrUnsupportedFormat = errors.New("recipients: unsupported file format")
)

// Layout maps logical columns to zero-based column positions. -1 means absent.
type Layout struct {
	Contact int
	Name    int
	Message int
	Image   int
}

// Report describes what a load skipped.
type Report struct {
	Source      string
	HeaderFound bool
	Layout      Layout
	SkippedRows []int
}

// Load reads recipients from an .xlsx/.xlsm workbook (active sheet) or a .csv file.
// Any invalid identifier fails the whole load so that no partial run starts.
func Load(path string) ([]Record, Report, error) {
	report := Report{Source: path}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, report, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, report, fmt.Errorf("recipients: stat %s: %w", path, err)
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readWorkbook(path)
	case ".csv":
		rows, err = readCSVFile(path)
	default:
		return nil, report, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, report, err
	}
	return Parse(rows, report)
}

// Parse converts raw rows into records.
func Parse(rows [][]string, report Report) ([]Record, Report, error) {
	if len(rows) == 0 {
		return nil, report, ErrNoRecipients
	}

	start := 0
	layout := layoutForWidth(maxWidth(rows))
	if first := cell(rows[0], 0); !LooksLikePhone(first) {
		report.HeaderFound = true
		layout = layoutFromHeader(rows[0], layout)
		start = 1
	}
	report.Layout = layout

	var (
		records []Record
		invalid []string
	)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1
		contact := strings.TrimSpace(cell(row, layout.Contact))
		message := strings.TrimSpace(cell(row, layout.Message))
		if contact == "" || message == "" {
			report.SkippedRows = append(report.SkippedRows, rowNum)
			continue
		}
		id, err := NormalizeE164(contact)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("row %d: %q", rowNum, contact))
			continue
		}
		records = append(records, Record{
			Index:       len(records),
			Row:         rowNum,
			Identifier:  id,
			RawContact:  contact,
			DisplayName: strings.TrimSpace(cell(row, layout.Name)),
			Message:     normalizeNewlines(message),
			ImagePath:   strings.TrimSpace(cell(row, layout.Image)),
		})
	}

	if len(invalid) > 0 {
		return nil, report, fmt.Errorf("%w: %s", ErrInvalidIdentifier, strings.Join(invalid, "; "))
	}
	if len(records) == 0 {
		return nil, report, ErrNoRecipients
	}
	return records, report, nil
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipients: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoRecipients
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("recipients: read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recipients: open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads all rows from r, tolerating ragged rows and a UTF-8 BOM.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("recipients: parse csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// layoutForWidth picks the column layout for header-less files:
// 4+ columns follow the template (contact, name, message, image),
// 3 columns are (contact, message, image), 2 are (contact, message).
func layoutForWidth(width int) Layout {
	switch {
	case width >= 4:
		return Layout{Contact: 0, Name: 1, Message: 2, Image: 3}
	case width == 3:
		return Layout{Contact: 0, Name: -1, Message: 1, Image: 2}
	default:
		return Layout{Contact: 0, Name: -1, Message: 1, Image: -1}
	}
}

func layoutFromHeader(header []string, fallback Layout) Layout {
	layout := Layout{Contact: -1, Name: -1, Message: -1, Image: -1}
	for i, raw := range header {
		h := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case h == "":
			continue
		case strings.Contains(h, "image") || strings.Contains(h, "photo"):
			if layout.Image < 0 {
				layout.Image = i
			}
		case strings.Contains(h, "message") || strings.Contains(h, "caption") || strings.Contains(h, "text"):
			if layout.Message < 0 {
				layout.Message = i
			}
		case strings.Contains(h, "number") || strings.Contains(h, "phone") || strings.Contains(h, "mobile"):
			if layout.Contact < 0 {
				layout.Contact = i
			}
		case strings.Contains(h, "name"):
			if layout.Name < 0 {
				layout.Name = i
			}
		case strings.Contains(h, "contact"):
			if layout.Contact < 0 {
				layout.Contact = i
			}
		}
	}
	if layout.Contact < 0 || layout.Message < 0 {
		return fallback
	}
	return layout
}

func maxWidth(rows [][]string) int {
	width := 0
	for _, row := range rows {
		n := len(row)
		for n > 0 && strings.TrimSpace(row[n-1]) == "" {
			n--
		}
		if n > width {
			width = n
		}
	}
	return width
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "_x000D_", "")
	return strings.ReplaceAll(s, "\r", "\n")
}
