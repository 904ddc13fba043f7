package recipients

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// TemplateHeader is the column order Load expects from a generated workbook.
var TemplateHeader = []string{"Contact Number", "Name", "Message", "Image Path"}

var templateExample = []string{
	"+919876543210",
	"Priya",
	"Our new collection is here.\nVisit us this weekend for 20% off.",
	"images/offer.jpg",
}

// WriteTemplate saves an example workbook with the expected header and one sample row.
func WriteTemplate(path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Recipients"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("recipients: rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &TemplateHeader); err != nil {
		return fmt.Errorf("recipients: write header: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A2", &templateExample); err != nil {
		return fmt.Errorf("recipients: write example row: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("recipients: header style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("recipients: message style: %w", err)
	}
	_ = f.SetCellStyle(sheet, "A1", "D1", bold)
	_ = f.SetCellStyle(sheet, "C2", "C2", wrap)
	_ = f.SetColWidth(sheet, "A", "B", 18)
	_ = f.SetColWidth(sheet, "C", "C", 60)
	_ = f.SetColWidth(sheet, "D", "D", 30)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("recipients: save template: %w", err)
	}
	return nil
}
