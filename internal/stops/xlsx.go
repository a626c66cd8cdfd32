package stops

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads the first sheet of a workbook using the same column layout
// and skip rules as Load.
func LoadXLSX(r io.Reader) (*Catalog, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("stops data has no header row")
	}

	c := newCatalog()
	// Skip header row
	for i, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		c.add(row, i+2)
	}

	c.group()
	return c, nil
}
