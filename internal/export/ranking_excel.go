package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/mentoria-engine/internal/models"
	"github.com/Spok95/mentoria-engine/internal/ranking"
)

type SheetSpec struct {
	Title  string
	Header []string
	Rows   [][]string
	// RowFills — цвет заливки строки данных (#RRGGBB), пусто — без заливки.
	RowFills []string
}

var zoneTitles = map[ranking.Zone]string{
	ranking.ZonePromotion:  "sobe",
	ranking.ZoneRelegation: "desce",
	ranking.ZoneHold:       "mantém",
}

var zoneFills = map[ranking.Zone]string{
	ranking.ZonePromotion:  fillPromotion,
	ranking.ZoneRelegation: fillRelegation,
}

// TierSheetTitle — имя листа уровня ("Liga 3").
func TierSheetTitle(tier int) string { return fmt.Sprintf("Liga %d", tier) }

const HistorySheetTitle = "Histórico"

// RankingSheets раскладывает места по листам: по одному на уровень (сверху вниз) и журнал закрытий.
func RankingSheets(standings map[int][]ranking.Standing, history []models.RankingHistoryRecord, loc *time.Location) []SheetSpec {
	var sheets []SheetSpec
	for tier := models.MaxTier; tier >= models.MinTier; tier-- {
		s := SheetSpec{
			Title:  TierSheetTitle(tier),
			Header: []string{"Posição", "Aluno", "Pontos", "Zona", "Liga anterior", "Atualizado em"},
		}
		for _, st := range standings[tier] {
			prev := ""
			if st.Entry.PreviousTier != nil {
				prev = strconv.Itoa(*st.Entry.PreviousTier)
			}
			s.Rows = append(s.Rows, []string{
				strconv.Itoa(st.Position),
				st.Entry.StudentID,
				strconv.FormatFloat(st.Entry.WeeklyScore, 'f', 2, 64),
				zoneTitles[st.Zone],
				prev,
				st.Entry.LastUpdatedAt.In(loc).Format("02.01.2006 15:04"),
			})
			s.RowFills = append(s.RowFills, zoneFills[st.Zone])
		}
		sheets = append(sheets, s)
	}

	h := SheetSpec{
		Title:  HistorySheetTitle,
		Header: []string{"Semana", "Fechado em", "Alunos", "Promoções", "Rebaixamentos", "Mantidos"},
	}
	for _, rec := range history {
		h.Rows = append(h.Rows, []string{
			rec.PeriodKey,
			rec.SettledAt.In(loc).Format("02.01.2006 15:04"),
			strconv.Itoa(rec.TotalStudents),
			strconv.Itoa(rec.Promotions),
			strconv.Itoa(rec.Relegations),
			strconv.Itoa(rec.Holds),
		})
	}
	return append(sheets, h)
}

// NewWorkbook собирает книгу из листов; числовые ячейки пишутся числами.
func NewWorkbook(sheets []SheetSpec) (*excelize.File, error) {
	f := excelize.NewFile()
	for _, s := range sheets {
		if _, err := f.NewSheet(s.Title); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s.Title, err)
		}
		for col, h := range s.Header {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellStr(s.Title, cell, h); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		for r, row := range s.Rows {
			for c, val := range row {
				cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
				if err := setCell(f, s.Title, cell, val); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}
		if err := formatSheet(f, s); err != nil {
			return nil, fmt.Errorf("format %s: %w", s.Title, err)
		}
	}
	if len(sheets) > 0 {
		// стандартный Sheet1 удаляем только после того, как появились свои листы
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("delete default sheet: %w", err)
		}
		if idx, err := f.GetSheetIndex(sheets[0].Title); err == nil {
			f.SetActiveSheet(idx)
		}
	}
	return f, nil
}

func setCell(f *excelize.File, sheet, cell, val string) error {
	if n, err := strconv.ParseFloat(val, 64); err == nil && val != "" {
		return f.SetCellFloat(sheet, cell, n, -1, 64)
	}
	return f.SetCellStr(sheet, cell, val)
}

// WriteRanking пишет выгрузку рейтинга в w.
func WriteRanking(w io.Writer, standings map[int][]ranking.Standing, history []models.RankingHistoryRecord, loc *time.Location) error {
	f, err := NewWorkbook(RankingSheets(standings, history, loc))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.WriteTo(w)
	return err
}
