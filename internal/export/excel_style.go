package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColWidth = 10
	maxColWidth = 48

	fillPromotion  = "#C6EFCE"
	fillRelegation = "#FFC7CE"
	fillHeader     = "#D9E1F2"
)

// formatSheet: жирная шапка с заливкой, закреплённая первая строка, автофильтр,
// ширина колонок по содержимому и подсветка строк зон.
func formatSheet(f *excelize.File, s SheetSpec) error {
	cols := len(s.Header)
	if cols == 0 {
		return nil
	}
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{fillHeader}},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.Title, "A1", last+"1", header); err != nil {
		return err
	}
	if err := f.SetPanes(s.Title, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	if len(s.Rows) > 0 {
		if err := f.AutoFilter(s.Title, fmt.Sprintf("A1:%s%d", last, len(s.Rows)+1), nil); err != nil {
			return err
		}
	}

	fills := map[string]int{}
	for i, color := range s.RowFills {
		if color == "" {
			continue
		}
		style, ok := fills[color]
		if !ok {
			style, err = f.NewStyle(&excelize.Style{
				Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
			})
			if err != nil {
				return err
			}
			fills[color] = style
		}
		row := i + 2
		if err := f.SetCellStyle(s.Title, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), style); err != nil {
			return err
		}
	}

	for c, w := range columnWidths(s) {
		name, _ := excelize.ColumnNumberToName(c + 1)
		if err := f.SetColWidth(s.Title, name, name, w); err != nil {
			return err
		}
	}
	return nil
}

func columnWidths(s SheetSpec) []float64 {
	widths := make([]float64, len(s.Header))
	for c, h := range s.Header {
		widths[c] = max(minColWidth, float64(utf8.RuneCountInString(h))+3)
	}
	for _, row := range s.Rows {
		for c := 0; c < len(row) && c < len(widths); c++ {
			widths[c] = max(widths[c], float64(utf8.RuneCountInString(row[c]))*1.1)
		}
	}
	for c := range widths {
		widths[c] = min(widths[c], maxColWidth)
	}
	return widths
}

// BuildRankingFilename — имя файла выгрузки рейтинга на дату.
func BuildRankingFilename(schoolName string, at time.Time) string {
	base := fmt.Sprintf("Ranking — %s — %s.xlsx", cleanName(schoolName), at.Format("2006-01-02"))
	return sanitizeFileName(base)
}

var invalidFileRe = regexp.MustCompile(`[\\/:*?"<>|]+`)

func sanitizeFileName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return invalidFileRe.ReplaceAllString(s, "_")
}

func cleanName(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "mentoria"
	}
	return s
}
