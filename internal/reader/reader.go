// package reader parses payment terms out of xlsx workbooks
package reader

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/desertthunder/termsync/internal/models"
	"github.com/desertthunder/termsync/internal/shared"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet terms are read from. Workbooks without it are rejected.
const SheetName = "payment_terms"

// ReadTerms opens the workbook at path and parses the payment_terms worksheet.
//
// Column A holds the term name, column B the integer id. The first row is a
// header and is skipped. Any row that cannot be parsed aborts the read with a
// [shared.RowError]; there is no partial result.
func ReadTerms(path string) ([]models.Term, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSourceFormat, err)
	}
	defer f.Close()

	return parseSheet(f)
}

// ParseTerms parses a workbook from r under the same rules as [ReadTerms].
func ParseTerms(r io.Reader) ([]models.Term, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSourceFormat, err)
	}
	defer f.Close()

	return parseSheet(f)
}

func parseSheet(f *excelize.File) ([]models.Term, error) {
	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: worksheet %q: %v", shared.ErrSourceFormat, SheetName, err)
	}

	if len(rows) == 0 {
		return []models.Term{}, nil
	}

	terms := make([]models.Term, 0, len(rows)-1)
	for idx, row := range rows[1:] {
		// 1-based worksheet row, accounting for the header
		rowNum := idx + 2

		var name, rawID string
		if len(row) > 0 {
			name = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			rawID = strings.TrimSpace(row[1])
		}

		// A row with no content in either column counts as unpopulated
		if name == "" && rawID == "" {
			continue
		}

		if name == "" {
			return nil, &shared.RowError{Row: rowNum, Column: "A", Reason: "name is empty"}
		}
		if rawID == "" {
			return nil, &shared.RowError{Row: rowNum, Column: "B", Reason: "id is empty"}
		}

		id, err := strconv.Atoi(rawID)
		if err != nil {
			return nil, &shared.RowError{Row: rowNum, Column: "B", Reason: fmt.Sprintf("id %q is not an integer", rawID)}
		}

		terms = append(terms, models.Term{Name: name, ID: id})
	}

	return terms, nil
}
