package tools

import (
	"context"
	"strings"
	"testing"
)

func TestDispatchUnknownTool(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "no.such.tool", nil)
	if res.Ok {
		t.Fatal("unknown tool must fail")
	}
	if !strings.Contains(res.Error, "unknown tool: no.such.tool") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestDispatchFiltersUndeclaredArgs(t *testing.T) {
	d, _ := newTestDispatcher(t)
	res := d.Dispatch(context.Background(), "fs.write", map[string]any{
		"path":    "out.txt",
		"content": "hello",
		"mode":    "0777", // not declared, must be dropped silently
	})
	if !res.Ok {
		t.Fatalf("fs.write: %+v", res)
	}
}

func TestDispatchRecoversFromPanickingTool(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.registry.specs["boom.tool"] = Spec{
		Name:   "boom.tool",
		Params: map[string]string{},
		Func: func(ctx context.Context, args map[string]any) Result {
			panic("corrupt input")
		},
	}

	res := d.Dispatch(context.Background(), "boom.tool", nil)
	if res.Ok {
		t.Fatal("panicking tool must yield a failed result")
	}
	if !strings.Contains(res.Error, "corrupt input") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestDispatchPassesApprovalKey(t *testing.T) {
	spec := Spec{
		Name:   "checker",
		Params: map[string]string{},
		Func: func(ctx context.Context, args map[string]any) Result {
			if !allowOutside(args) {
				return Fail("approval key dropped")
			}
			return OK(nil)
		},
	}
	filtered := filterArgs(spec, map[string]any{AllowOutsideRootKey: true, "junk": 1})
	res := spec.Func(context.Background(), filtered)
	if !res.Ok {
		t.Error(res.Error)
	}
	if _, present := filtered["junk"]; present {
		t.Error("undeclared key survived filtering")
	}
}

func TestNormalizeAlias(t *testing.T) {
	cases := []struct {
		name     string
		args     map[string]any
		wantName string
	}{
		{"fs.writeFile", map[string]any{"path": "a", "data": "x"}, "fs.write"},
		{"fs-extra.writeFile", map[string]any{"path": "a"}, "fs.write"},
		{"mkdir", map[string]any{"path": "d"}, "fs.mkdir"},
		{"fs.mkdirp", map[string]any{"path": "d"}, "fs.mkdir"},
		{"cp", nil, "fs.copy"},
		{"web.openMany", nil, "web.open"},
		{"git.checkout", nil, "git.branch"},
		{"git.createBranch", nil, "git.branch"},
		{"fs.read", map[string]any{"path": "a"}, "fs.read"},
	}
	for _, tc := range cases {
		got, _ := NormalizeAlias(tc.name, tc.args)
		if got != tc.wantName {
			t.Errorf("NormalizeAlias(%q) = %q, want %q", tc.name, got, tc.wantName)
		}
	}
}

func TestNormalizeAliasWriteFileData(t *testing.T) {
	_, args := NormalizeAlias("fs.writeFile", map[string]any{"path": "a.txt", "data": "conteúdo"})
	if args["content"] != "conteúdo" {
		t.Errorf("data not mapped to content: %v", args)
	}
	if _, present := args["data"]; present {
		t.Error("data key must be removed")
	}
}

func TestNormalizeAliasEditIni(t *testing.T) {
	name, args := NormalizeAlias("edit.ini", map[string]any{
		"path":    "cfg.ini",
		"content": []any{"replace", "'old'", "'new'"},
	})
	if name != "edit.replace" {
		t.Fatalf("name = %q", name)
	}
	if args["find"] != "old" || args["replace"] != "new" {
		t.Errorf("args = %v", args)
	}
}

func TestNormalizeAliasGitBranchActions(t *testing.T) {
	_, args := NormalizeAlias("git.checkout", map[string]any{"name": "dev"})
	if args["action"] != "switch" {
		t.Errorf("checkout action = %v", args["action"])
	}
	_, args = NormalizeAlias("git.newBranch", map[string]any{"name": "dev"})
	if args["action"] != "create" {
		t.Errorf("newBranch action = %v", args["action"])
	}
}
