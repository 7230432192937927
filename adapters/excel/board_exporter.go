package excel

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"openach/domain/metrics"
	"openach/internal/errors"
	"openach/models"
)

// BoardExport is the data needed to render a board workbook. Consensus maps
// evidence ID to the aggregate evaluation per hypothesis ID; pairs with no
// ratings are absent.
type BoardExport struct {
	Board      *models.Board
	Hypotheses []*models.Hypothesis
	Evidence   []*models.Evidence
	Consensus  map[uuid.UUID]map[uuid.UUID]models.Eval
}

// BoardExporter renders analysis boards as xlsx workbooks
type BoardExporter struct{}

// NewBoardExporter creates a board exporter
func NewBoardExporter() *BoardExporter {
	return &BoardExporter{}
}

// Export writes the board matrix as an xlsx workbook. Hypotheses run across
// the columns and evidence down the rows, with the consensus evaluation in
// each cell.
func (e *BoardExporter) Export(w io.Writer, export *BoardExport) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Board"
	f.SetSheetName("Sheet1", sheet)

	setCell := func(col, row int, value interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, value)
	}

	if err := setCell(1, 1, export.Board.Title); err != nil {
		return errors.Wrap(err, "failed to write board title")
	}
	if err := setCell(1, 2, export.Board.Description); err != nil {
		return errors.Wrap(err, "failed to write board description")
	}
	if err := setCell(1, 3, fmt.Sprintf("Exported %s", time.Now().Format("2006-01-02"))); err != nil {
		return errors.Wrap(err, "failed to write export date")
	}

	// Matrix header: evidence label cell, then one column per hypothesis
	const headerRow = 5
	if err := setCell(1, headerRow, "Evidence"); err != nil {
		return errors.Wrap(err, "failed to write matrix header")
	}
	for i, hypothesis := range export.Hypotheses {
		if err := setCell(i+2, headerRow, hypothesis.Text); err != nil {
			return errors.Wrap(err, "failed to write hypothesis header")
		}
	}

	diagnosticityCol := len(export.Hypotheses) + 2
	if err := setCell(diagnosticityCol, headerRow, "Diagnosticity"); err != nil {
		return errors.Wrap(err, "failed to write diagnosticity header")
	}

	for j, evidence := range export.Evidence {
		row := headerRow + 1 + j
		if err := setCell(1, row, evidence.Description); err != nil {
			return errors.Wrap(err, "failed to write evidence row")
		}
		byHypothesis := export.Consensus[evidence.ID]
		evidenceCells := make([][]models.Eval, len(export.Hypotheses))
		for i, hypothesis := range export.Hypotheses {
			vote, ok := byHypothesis[hypothesis.ID]
			label := "No Assessments"
			if ok {
				label = vote.String()
				evidenceCells[i] = []models.Eval{vote}
			}
			if err := setCell(i+2, row, label); err != nil {
				return errors.Wrap(err, "failed to write consensus cell")
			}
		}
		if err := setCell(diagnosticityCol, row, metrics.Diagnosticity(evidenceCells)); err != nil {
			return errors.Wrap(err, "failed to write diagnosticity cell")
		}
	}

	// Per-hypothesis score rows under the matrix, from the consensus ratings
	inconsistencyRow := headerRow + len(export.Evidence) + 1
	consistencyRow := inconsistencyRow + 1
	if err := setCell(1, inconsistencyRow, "Inconsistency"); err != nil {
		return errors.Wrap(err, "failed to write inconsistency label")
	}
	if err := setCell(1, consistencyRow, "Consistency"); err != nil {
		return errors.Wrap(err, "failed to write consistency label")
	}
	for i, hypothesis := range export.Hypotheses {
		hypothesisCells := make([][]models.Eval, len(export.Evidence))
		for j, evidence := range export.Evidence {
			if vote, ok := export.Consensus[evidence.ID][hypothesis.ID]; ok {
				hypothesisCells[j] = []models.Eval{vote}
			}
		}
		if err := setCell(i+2, inconsistencyRow, metrics.Inconsistency(hypothesisCells)); err != nil {
			return errors.Wrap(err, "failed to write inconsistency cell")
		}
		if err := setCell(i+2, consistencyRow, metrics.Consistency(hypothesisCells)); err != nil {
			return errors.Wrap(err, "failed to write consistency cell")
		}
	}

	// Widen the evidence column so descriptions stay readable
	if err := f.SetColWidth(sheet, "A", "A", 48); err != nil {
		return errors.Wrap(err, "failed to size evidence column")
	}
	lastCol, err := excelize.ColumnNumberToName(len(export.Hypotheses) + 1)
	if err == nil && len(export.Hypotheses) > 0 {
		if err := f.SetColWidth(sheet, "B", lastCol, 24); err != nil {
			return errors.Wrap(err, "failed to size hypothesis columns")
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}
