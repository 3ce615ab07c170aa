package export

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/practice-audit/internal/model"
)

// SheetName is the worksheet the campaign is written to.
const SheetName = "Google Ads"

// Workbook builds a single-sheet workbook with a bold header row.
func Workbook(t *Table) (*xlsx.File, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: add sheet")
	}

	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true

	header := sheet.AddRow()
	for _, v := range t.Header {
		cell := header.AddCell()
		cell.SetString(v)
		cell.SetStyle(bold)
	}
	for _, r := range t.Rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	return f, nil
}

// WriteCampaign renders c as an XLSX workbook to w.
func WriteCampaign(w io.Writer, c model.CampaignExport) error {
	t, err := ParseCampaign(c)
	if err != nil {
		return err
	}
	f, err := Workbook(t)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

// SaveCampaign writes c as an XLSX workbook at path.
func SaveCampaign(path string, c model.CampaignExport) error {
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "xlsx: create %s", path)
	}
	if err := WriteCampaign(out, c); err != nil {
		out.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(out.Close(), "xlsx: close file")
}

// ReadSheet returns every row of the first sheet in the workbook at path.
func ReadSheet(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
