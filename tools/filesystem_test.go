package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteThenRead(t *testing.T) {
	d, root := newTestDispatcher(t)
	ctx := context.Background()

	res := d.Dispatch(ctx, "fs.write", map[string]any{"path": "docs/nota.txt", "content": "olá mundo"})
	if !res.Ok {
		t.Fatalf("fs.write: %+v", res)
	}
	if res.GetString("path") != filepath.Join(root, "docs/nota.txt") {
		t.Errorf("path = %q", res.GetString("path"))
	}

	res = d.Dispatch(ctx, "fs.read", map[string]any{"path": "docs/nota.txt"})
	if !res.Ok || res.GetString("content") != "olá mundo" {
		t.Fatalf("fs.read: %+v", res)
	}
	if trunc, _ := res.Get("truncated"); trunc != false {
		t.Error("small file reported as truncated")
	}
}

func TestReadTruncatesAtMaxBytes(t *testing.T) {
	d, root := newTestDispatcher(t)
	if err := os.WriteFile(filepath.Join(root, "big.txt"), []byte(strings.Repeat("a", 100)), 0o644); err != nil {
		t.Fatal(err)
	}

	res := d.Dispatch(context.Background(), "fs.read", map[string]any{"path": "big.txt", "max_bytes": 10})
	if !res.Ok {
		t.Fatalf("fs.read: %+v", res)
	}
	if len(res.GetString("content")) != 10 {
		t.Errorf("content length = %d", len(res.GetString("content")))
	}
	if trunc, _ := res.Get("truncated"); trunc != true {
		t.Error("truncation not reported")
	}
}

func TestReadMissingFile(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "fs.read", map[string]any{"path": "nada.txt"})
	if res.Ok || res.Error != "file not found" {
		t.Errorf("got %+v", res)
	}
}

func TestAppendGrowsFile(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	d.Dispatch(ctx, "fs.write", map[string]any{"path": "log.txt", "content": "a"})
	d.Dispatch(ctx, "fs.append", map[string]any{"path": "log.txt", "content": "b"})

	res := d.Dispatch(ctx, "fs.read", map[string]any{"path": "log.txt"})
	if res.GetString("content") != "ab" {
		t.Errorf("content = %q", res.GetString("content"))
	}
}

func TestListDirectory(t *testing.T) {
	d, root := newTestDispatcher(t)
	for _, name := range []string{"a.txt", "b.md", "c.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res := d.Dispatch(context.Background(), "fs.list", map[string]any{})
	if !res.Ok {
		t.Fatalf("fs.list: %+v", res)
	}
	items, _ := res.Get("items")
	if got := len(items.([]string)); got != 3 {
		t.Errorf("items = %d, want 3", got)
	}
}

func TestListWithGlob(t *testing.T) {
	d, root := newTestDispatcher(t)
	for _, name := range []string{"a.txt", "b.md"} {
		if err := os.WriteFile(filepath.Join(root, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res := d.Dispatch(context.Background(), "fs.list", map[string]any{"glob": "*.txt"})
	items := res.Extra["items"].([]string)
	if len(items) != 1 || !strings.HasSuffix(items[0], "a.txt") {
		t.Errorf("items = %v", items)
	}
}

func TestOutsideRootAsksConfirmation(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "fs.read", map[string]any{"path": "/etc/hostname"})
	if res.Ok || !res.ConfirmRequired {
		t.Fatalf("want confirm_required, got %+v", res)
	}
	if res.Action != "fs.read" || res.Path != "/etc/hostname" {
		t.Errorf("replay fields: %+v", res)
	}
}

func TestApprovalFlagClearsConfirmation(t *testing.T) {
	d, _ := newTestDispatcher(t)
	outside := t.TempDir()
	target := filepath.Join(outside, "fora.txt")
	if err := os.WriteFile(target, []byte("conteúdo externo"), 0o644); err != nil {
		t.Fatal(err)
	}

	res := d.Dispatch(context.Background(), "fs.read", map[string]any{"path": target})
	if !res.ConfirmRequired {
		t.Fatalf("expected confirmation, got %+v", res)
	}

	res = d.Dispatch(context.Background(), "fs.read", map[string]any{
		"path": target, AllowOutsideRootKey: true,
	})
	if !res.Ok || res.GetString("content") != "conteúdo externo" {
		t.Fatalf("approved read: %+v", res)
	}
}

func TestDenylistedPathFailsOutright(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "fs.read", map[string]any{
		"path": "/proc/self/environ", AllowOutsideRootKey: true,
	})
	if res.Ok || res.ConfirmRequired {
		t.Fatalf("denylisted path must hard-fail: %+v", res)
	}
}

func TestSearchReportsFileLineText(t *testing.T) {
	d, root := newTestDispatcher(t)
	content := "primeira\nsegunda agulha aqui\nterceira"
	if err := os.WriteFile(filepath.Join(root, "palheiro.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res := d.Dispatch(context.Background(), "fs.search", map[string]any{"query": "agulha"})
	if !res.Ok {
		t.Fatalf("fs.search: %+v", res)
	}
	matches := res.GetString("matches")
	if !strings.Contains(matches, "palheiro.txt:2:segunda agulha aqui") {
		t.Errorf("matches = %q", matches)
	}
}

func TestEditReplace(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	d.Dispatch(ctx, "fs.write", map[string]any{"path": "f.txt", "content": "x x x"})

	res := d.Dispatch(ctx, "edit.replace", map[string]any{"path": "f.txt", "find": "x", "replace": "y", "count": 2})
	if !res.Ok {
		t.Fatalf("edit.replace: %+v", res)
	}
	if n, _ := res.Get("replaced"); n != 2 {
		t.Errorf("replaced = %v", n)
	}

	read := d.Dispatch(ctx, "fs.read", map[string]any{"path": "f.txt"})
	if read.GetString("content") != "y y x" {
		t.Errorf("content = %q", read.GetString("content"))
	}
}

func TestEditReplaceMissingNeedle(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	d.Dispatch(ctx, "fs.write", map[string]any{"path": "f.txt", "content": "abc"})

	res := d.Dispatch(ctx, "edit.replace", map[string]any{"path": "f.txt", "find": "zzz", "replace": "y"})
	if res.Ok || res.Error != "texto não encontrado no arquivo" {
		t.Errorf("got %+v", res)
	}
}

func TestTempfileStaysInRoot(t *testing.T) {
	d, root := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "fs.tempfile", map[string]any{"content": "tmp"})
	if !res.Ok {
		t.Fatalf("fs.tempfile: %+v", res)
	}
	if !strings.HasPrefix(res.GetString("path"), root) {
		t.Errorf("tempfile outside root: %q", res.GetString("path"))
	}
}

func TestCopyFile(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()
	d.Dispatch(ctx, "fs.write", map[string]any{"path": "orig.txt", "content": "dados"})

	res := d.Dispatch(ctx, "fs.copy", map[string]any{"src": "orig.txt", "dest": "sub/copia.txt"})
	if !res.Ok {
		t.Fatalf("fs.copy: %+v", res)
	}
	read := d.Dispatch(ctx, "fs.read", map[string]any{"path": "sub/copia.txt"})
	if read.GetString("content") != "dados" {
		t.Errorf("copied content = %q", read.GetString("content"))
	}
}
