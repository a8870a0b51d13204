package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/adrianocbaa/defensoria-fogo-control-sub005/models"
)

// SessionExportHandler downloads a measurement bulletin: the item entries of
// one session as a spreadsheet.
type SessionExportHandler struct {
	db *gorm.DB
}

func NewSessionExportHandler(db *gorm.DB) *SessionExportHandler {
	return &SessionExportHandler{db: db}
}

// ExportToExcel writes the session's items as an xlsx download.
func (h *SessionExportHandler) ExportToExcel(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID := vars["id"]

	var session models.Session
	if err := h.db.Preload("Items").Preload("Obra").First(&session, "id = ?", sessionID).Error; err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	excelFile, err := createSessionWorkbook(&session)
	if err != nil {
		http.Error(w, "Failed to generate Excel file", http.StatusInternalServerError)
		return
	}

	buffer, err := excelFile.WriteToBuffer()
	if err != nil {
		http.Error(w, "Failed to write Excel file", http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("%s_%02d_%s.xlsx", session.Kind, session.Sequence, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", buffer.Len()))

	w.WriteHeader(http.StatusOK)
	w.Write(buffer.Bytes())
}

// createSessionWorkbook builds the bulletin spreadsheet for one session.
func createSessionWorkbook(session *models.Session) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Boletim"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 16,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})

	title := fmt.Sprintf("Boletim de %s nº %d", session.Kind, session.Sequence)
	if session.Obra != nil {
		title = fmt.Sprintf("%s - %s", title, session.Obra.Name)
	}
	f.SetCellValue(sheetName, "A1", title)
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)

	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Status: %s - Generated: %s",
		session.Status, time.Now().Format("2006-01-02 15:04:05")))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})

	headers := []string{"Item", "Quantidade", "Percentual", "Total"}
	for colIdx, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 4)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}
	f.SetColWidth(sheetName, "A", "D", 18)

	for rowIdx, item := range session.Items {
		row := rowIdx + 5
		cellA, _ := excelize.CoordinatesToCellName(1, row)
		cellB, _ := excelize.CoordinatesToCellName(2, row)
		cellC, _ := excelize.CoordinatesToCellName(3, row)
		cellD, _ := excelize.CoordinatesToCellName(4, row)
		f.SetCellValue(sheetName, cellA, item.ItemCode)
		f.SetCellValue(sheetName, cellB, item.Qtd)
		f.SetCellValue(sheetName, cellC, item.Pct)
		f.SetCellValue(sheetName, cellD, item.Total)
	}

	return f, nil
}
