package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/studydeck/internal/common"
	"github.com/joseph-ayodele/studydeck/internal/generate"
)

// XLSXContentType is the media type of the workbooks produced here.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service renders study decks as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// FlashcardsXLSX returns a one-sheet workbook with a numbered question/answer row per card.
func (s *Service) FlashcardsXLSX(cards []generate.Flashcard) ([]byte, error) {
	if len(cards) == 0 {
		return nil, common.ValidationError("flashcards must not be empty", nil)
	}
	rows := make([][]any, 0, len(cards))
	for i, c := range cards {
		rows = append(rows, []any{i + 1, c.Question, c.Answer})
	}
	return s.render("Flashcards",
		[]string{"#", "Question", "Answer"},
		[]float64{6, 60, 80},
		rows)
}

// MCQsXLSX returns a workbook with one row per question. Graded questions also carry the
// selection and the outcome.
func (s *Service) MCQsXLSX(qs []generate.MCQ) ([]byte, error) {
	if len(qs) == 0 {
		return nil, common.ValidationError("mcqs must not be empty", nil)
	}
	rows := make([][]any, 0, len(qs))
	for i, q := range qs {
		result := ""
		if q.IsCorrect != nil {
			result = "incorrect"
			if *q.IsCorrect {
				result = "correct"
			}
		}
		rows = append(rows, []any{i + 1, q.Question, q.A, q.B, q.C, q.D, q.Correct, q.UserSelection, result})
	}
	return s.render("MCQs",
		[]string{"#", "Question", "A", "B", "C", "D", "Correct", "Selected", "Result"},
		[]float64{6, 60, 30, 30, 30, 30, 10, 10, 12},
		rows)
}

func (s *Service) render(sheet string, headers []string, widths []float64, rows [][]any) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"sheet", sheet,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
