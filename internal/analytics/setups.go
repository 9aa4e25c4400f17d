package analytics

import (
	"sort"

	"github.com/edgelog/internal/models"
)

// UngradedKey holds setups logged without a grade
const UngradedKey = "ungraded"

// MinSetupSample is the smallest cell that can be named best setup
const MinSetupSample = 3

// Grades lists the matrix columns in order
var Grades = []string{models.GradeAPlus, models.GradeA, models.GradeB, models.GradeC, UngradedKey}

// SetupCell is the edge of one setup at one grade
type SetupCell struct {
	Setup string    `json:"setup"`
	Grade string    `json:"grade"`
	Edge  EdgeStats `json:"edge"`
}

// SetupRow aggregates one setup across all grades
type SetupRow struct {
	Setup string      `json:"setup"`
	Edge  EdgeStats   `json:"edge"`
	Cells []SetupCell `json:"cells"`
}

// SetupMatrix is the setup x grade edge grid
type SetupMatrix struct {
	Grades  []string             `json:"grades"`
	Rows    []SetupRow           `json:"rows"`
	ByGrade map[string]EdgeStats `json:"by_grade"`
	Best    *SetupCell           `json:"best,omitempty"`
}

// SetupGradeMatrix groups classified, closed records by setup and grade.
// Rows are ordered by setup expectancy, best first.
func SetupGradeMatrix(records []TradeRecord) SetupMatrix {
	eligible := ClassifiedOnly(ClosedOnly(records))

	bySetup := make(map[string][]TradeRecord)
	byGrade := make(map[string][]TradeRecord)
	for _, r := range eligible {
		if r.Setup == "" {
			continue
		}
		g := gradeKey(r.Grade)
		bySetup[r.Setup] = append(bySetup[r.Setup], r)
		byGrade[g] = append(byGrade[g], r)
	}

	m := SetupMatrix{Grades: Grades, ByGrade: make(map[string]EdgeStats, len(Grades))}
	for _, g := range Grades {
		m.ByGrade[g] = Edge(byGrade[g])
	}

	for setup, recs := range bySetup {
		row := SetupRow{Setup: setup, Edge: Edge(recs)}
		cells := make(map[string][]TradeRecord)
		for _, r := range recs {
			g := gradeKey(r.Grade)
			cells[g] = append(cells[g], r)
		}
		for _, g := range Grades {
			cell := SetupCell{Setup: setup, Grade: g, Edge: Edge(cells[g])}
			row.Cells = append(row.Cells, cell)
			if cell.Edge.TotalTrades < MinSetupSample {
				continue
			}
			if m.Best == nil || cell.Edge.Expectancy > m.Best.Edge.Expectancy {
				c := cell
				m.Best = &c
			}
		}
		m.Rows = append(m.Rows, row)
	}

	sort.Slice(m.Rows, func(i, j int) bool {
		if m.Rows[i].Edge.Expectancy != m.Rows[j].Edge.Expectancy {
			return m.Rows[i].Edge.Expectancy > m.Rows[j].Edge.Expectancy
		}
		return m.Rows[i].Setup < m.Rows[j].Setup
	})
	return m
}

func gradeKey(g string) string {
	switch g {
	case models.GradeAPlus, models.GradeA, models.GradeB, models.GradeC:
		return g
	default:
		return UngradedKey
	}
}
