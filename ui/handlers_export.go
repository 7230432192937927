package ui

import (
	"net/http"

	"openach/adapters/excel"
)

// handleBoardExport streams the board matrix as an xlsx workbook
func (a *App) handleBoardExport(w http.ResponseWriter, r *http.Request) {
	id, err := boardID(r)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	board, hypotheses, evidence, consensus, err := a.boards.ExportData(r.Context(), currentUser(r), id)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	filename := board.Slug
	if filename == "" {
		filename = board.ID.String()
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)

	export := &excel.BoardExport{
		Board:      board,
		Hypotheses: hypotheses,
		Evidence:   evidence,
		Consensus:  consensus,
	}
	if err := a.exporter.Export(w, export); err != nil {
		a.logger.Error("failed to export board %s: %v", id, err)
	}
}
