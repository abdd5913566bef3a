package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixtureCSV = "produto,preco,estoque\nteclado,120,5\nmouse,80,12\nmonitor,900,2\n"

func writeFixture(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(root, "vendas.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSheet(t *testing.T) {
	d, root := newTestDispatcher(t)
	writeFixture(t, root)

	res := d.Dispatch(context.Background(), "spreadsheet.read_sheet", map[string]any{"path": "vendas.csv"})
	if !res.Ok {
		t.Fatalf("read_sheet: %+v", res)
	}
	sheets := res.Extra["sheets"].(map[string]any)
	sheet1 := sheets["Sheet1"].(map[string]any)
	if sheet1["rows"] != 3 {
		t.Errorf("rows = %v", sheet1["rows"])
	}
	cols := sheet1["columns"].([]string)
	if len(cols) != 3 || cols[0] != "produto" {
		t.Errorf("columns = %v", cols)
	}
	if !strings.Contains(sheet1["head_csv"].(string), "teclado,120,5") {
		t.Errorf("head_csv = %q", sheet1["head_csv"])
	}
}

func TestQuerySelectsFromDF(t *testing.T) {
	d, root := newTestDispatcher(t)
	writeFixture(t, root)

	res := d.Dispatch(context.Background(), "spreadsheet.query", map[string]any{
		"path":  "vendas.csv",
		"query": "SELECT produto FROM df WHERE CAST(preco AS INTEGER) > 100 ORDER BY produto",
	})
	if !res.Ok {
		t.Fatalf("query: %+v", res)
	}
	table := res.GetString("result")
	if !strings.Contains(table, "monitor") || !strings.Contains(table, "teclado") {
		t.Errorf("result = %q", table)
	}
	if strings.Contains(table, "mouse") {
		t.Errorf("mouse should be filtered out: %q", table)
	}
}

func TestQueryRequiresDFTable(t *testing.T) {
	d, root := newTestDispatcher(t)
	writeFixture(t, root)

	res := d.Dispatch(context.Background(), "spreadsheet.query", map[string]any{
		"path":  "vendas.csv",
		"query": "SELECT * FROM vendas",
	})
	if res.Ok {
		t.Fatal("query not against df must fail")
	}
	if !strings.Contains(res.Error, "'df'") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestQueryMissingFile(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "spreadsheet.query", map[string]any{
		"path":  "nada.csv",
		"query": "SELECT * FROM df",
	})
	if res.Ok {
		t.Fatal("missing file must fail")
	}
}
