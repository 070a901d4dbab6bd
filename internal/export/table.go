package export

import (
	"sort"

	"github.com/xela07ax/reqtrack/internal/domain"
)

// Table — плоская выгрузка: заголовок и по строке на документ.
type Table struct {
	Columns []string
	Rows    [][]string
}

// BuildTable сводит документы к единому набору колонок: сначала поля модели,
// затем все прочие встреченные поля по алфавиту. Отсутствующие поля — пустые ячейки.
// Пустая коллекция дает только заголовок.
func BuildTable(docs []domain.Document) Table {
	known := make(map[string]struct{}, len(domain.CanonicalFields))
	columns := make([]string, 0, len(domain.CanonicalFields))
	for _, f := range domain.CanonicalFields {
		known[f] = struct{}{}
		columns = append(columns, f)
	}

	var extra []string
	for _, doc := range docs {
		for k := range doc {
			if _, ok := known[k]; ok {
				continue
			}
			known[k] = struct{}{}
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	columns = append(columns, extra...)

	rows := make([][]string, 0, len(docs))
	for _, doc := range docs {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = doc[c]
		}
		rows = append(rows, row)
	}

	return Table{Columns: columns, Rows: rows}
}
