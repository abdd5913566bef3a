// Spreadsheet tools: CSV inspection and SQL queries over a CSV loaded into
// an in-memory sqlite table named df.

package tools

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

const (
	sheetPreviewRows = 50
	queryResultRows  = 200
)

var (
	selectRe = regexp.MustCompile(`(?i)\bselect\b`)
	fromDFRe = regexp.MustCompile(`(?i)\bfrom\s+df\b`)
	identRe  = regexp.MustCompile(`[^a-zA-Z0-9_]`)
)

func (tb *Toolbox) spreadsheetSpecs() []Spec {
	return []Spec{
		{
			Name:        "spreadsheet.read_sheet",
			Description: "Ler estrutura e amostra de uma planilha CSV",
			Params:      map[string]string{"path": "str"},
			Func:        tb.spreadsheetReadSheet,
		},
		{
			Name:        "spreadsheet.query",
			Description: "Consulta SQL sobre uma planilha CSV (tabela 'df')",
			Params:      map[string]string{"path": "str", "query": "str"},
			Func:        tb.spreadsheetQuery,
		},
	}
}

func (tb *Toolbox) spreadsheetReadSheet(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	abs, confirm := tb.readableOrConfirm("spreadsheet.read_sheet", a.Path,
		map[string]any{"path": a.Path}, args)
	if confirm != nil {
		return *confirm
	}

	header, rows, err := readCSV(abs)
	if err != nil {
		return Fail("Falha ao ler a planilha: %v", err)
	}

	preview := rows
	if len(preview) > sheetPreviewRows {
		preview = preview[:sheetPreviewRows]
	}
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(header)
	_ = w.WriteAll(preview)
	w.Flush()

	return OK(map[string]any{
		"path": abs,
		"sheets": map[string]any{
			"Sheet1": map[string]any{
				"rows":     len(rows),
				"columns":  header,
				"head_csv": sb.String(),
			},
		},
	})
}

func (tb *Toolbox) spreadsheetQuery(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path  string `json:"path"`
		Query string `json:"query"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if strings.TrimSpace(a.Query) == "" {
		return Fail("O parâmetro 'query' é obrigatório.")
	}
	if !selectRe.MatchString(a.Query) || !fromDFRe.MatchString(a.Query) {
		return Fail("Consulta SQL inválida. A consulta DEVE ser no formato 'SELECT ... FROM df ...', usando 'df' como o nome da tabela.")
	}

	abs, confirm := tb.readableOrConfirm("spreadsheet.query", a.Path,
		map[string]any{"path": a.Path, "query": a.Query}, args)
	if confirm != nil {
		return *confirm
	}

	header, rows, err := readCSV(abs)
	if err != nil {
		return Fail("Falha ao ler a planilha: %v", err)
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return Fail("Falha ao executar a consulta na planilha: %v", err)
	}
	defer db.Close()

	if err := loadDataFrame(ctx, db, header, rows); err != nil {
		return Fail("Falha ao executar a consulta na planilha: %v", err)
	}

	cols, out, err := queryRows(ctx, db, a.Query)
	if err != nil {
		return Fail("Falha ao executar a consulta na planilha: %v", err)
	}
	return OK(map[string]any{
		"query":  a.Query,
		"result": renderTable(cols, out),
	})
}

// readCSV loads a CSV file as a header row plus data rows. Short records are
// padded so every row matches the header width.
func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("planilha vazia")
	}
	header := records[0]
	rows := records[1:]
	for i, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		rows[i] = row[:len(header)]
	}
	return header, rows, nil
}

// loadDataFrame creates the df table and bulk-inserts the rows. All columns
// are TEXT; sqlite's weak typing still lets numeric comparisons work in
// practice for well-formed data.
func loadDataFrame(ctx context.Context, db *sql.DB, header []string, rows [][]string) error {
	cols := make([]string, len(header))
	for i, h := range header {
		name := identRe.ReplaceAllString(strings.TrimSpace(h), "_")
		if name == "" {
			name = fmt.Sprintf("col%d", i)
		}
		cols[i] = fmt.Sprintf("%q TEXT", name)
	}
	create := "CREATE TABLE df (" + strings.Join(cols, ", ") + ")"
	if _, err := db.ExecContext(ctx, create); err != nil {
		return err
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(header)), ",")
	insert := "INSERT INTO df VALUES (" + placeholders + ")"
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, row := range rows {
		vals := make([]any, len(row))
		for i, v := range row {
			vals[i] = v
		}
		if _, err := stmt.ExecContext(ctx, vals...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func queryRows(ctx context.Context, db *sql.DB, query string) ([]string, [][]string, error) {
	rs, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rs.Close()

	cols, err := rs.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rs.Next() && len(out) < queryResultRows {
		raw := make([]any, len(cols))
		for i := range raw {
			raw[i] = new(sql.NullString)
		}
		if err := rs.Scan(raw...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			ns := v.(*sql.NullString)
			if ns.Valid {
				row[i] = ns.String
			}
		}
		out = append(out, row)
	}
	return cols, out, rs.Err()
}

// renderTable formats rows as a markdown pipe table, the shape models handle
// best when summarizing tabular answers.
func renderTable(cols []string, rows [][]string) string {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	for _, row := range rows {
		for i, v := range row {
			if len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], c)
		}
		return "| " + strings.Join(parts, " | ") + " |"
	}

	sep := make([]string, len(cols))
	for i := range cols {
		sep[i] = strings.Repeat("-", widths[i])
	}

	lines := []string{line(cols), line(sep)}
	for _, row := range rows {
		lines = append(lines, line(row))
	}
	return strings.Join(lines, "\n")
}
