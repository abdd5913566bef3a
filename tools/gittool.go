// Git tools backed by go-git. Repository paths must live inside the
// sandbox root (or be covered by the global write flag); unlike the fs
// tools, git operations never go through the confirmation handshake.

package tools

import (
	"context"
	"fmt"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

func (tb *Toolbox) gitSpecs() []Spec {
	return []Spec{
		{
			Name:        "git.status",
			Description: "Mostrar o estado do repositório git",
			Params:      map[string]string{"path": "str?"},
			Func:        tb.gitStatus,
		},
		{
			Name:        "git.diff",
			Description: "Resumir as alterações pendentes do repositório",
			Params:      map[string]string{"path": "str?", "staged": "bool?"},
			Func:        tb.gitDiff,
		},
		{
			Name:        "git.commit",
			Description: "Criar um commit com as alterações",
			Params:      map[string]string{"path": "str?", "message": "str", "add_all": "bool?", "files": "list[str]?"},
			Func:        tb.gitCommit,
		},
		{
			Name:        "git.branch",
			Description: "Listar, criar ou trocar de branch",
			Params:      map[string]string{"path": "str?", "action": "str?", "name": "str?"},
			Func:        tb.gitBranch,
		},
		{
			Name:        "git.restore",
			Description: "Descartar alterações de arquivos",
			Params:      map[string]string{"path": "str?", "files": "list[str]", "staged": "bool?"},
			Func:        tb.gitRestore,
		},
	}
}

// openRepo resolves the optional repo path (default: sandbox root) and opens it.
func (tb *Toolbox) openRepo(args map[string]any, path string) (*git.Repository, Result, bool) {
	if path == "" || path == "." || path == "./" {
		path = tb.policy.Root
	}
	abs, err := tb.policy.ResolveWritable(path, allowOutside(args))
	if err != nil {
		return nil, Fail("%s", err.Error()), false
	}
	repo, err := git.PlainOpen(abs)
	if err != nil {
		return nil, Fail("não é um repositório git: %s", abs), false
	}
	return repo, Result{}, true
}

func (tb *Toolbox) gitStatus(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	repo, fail, ok := tb.openRepo(args, a.Path)
	if !ok {
		return fail
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Fail("%v", err)
	}
	status, err := wt.Status()
	if err != nil {
		return Fail("%v", err)
	}

	var lines []string
	for _, file := range sortedStatusFiles(status) {
		fs := status[file]
		lines = append(lines, fmt.Sprintf("%c%c %s", fs.Staging, fs.Worktree, file))
	}
	return OK(map[string]any{"clean": status.IsClean(), "entries": lines})
}

func (tb *Toolbox) gitDiff(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path   string `json:"path"`
		Staged bool   `json:"staged"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	repo, fail, ok := tb.openRepo(args, a.Path)
	if !ok {
		return fail
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Fail("%v", err)
	}
	status, err := wt.Status()
	if err != nil {
		return Fail("%v", err)
	}

	changes := make([]map[string]any, 0)
	for _, file := range sortedStatusFiles(status) {
		fs := status[file]
		code := fs.Worktree
		if a.Staged {
			code = fs.Staging
		}
		if code == git.Unmodified || code == git.Untracked && a.Staged {
			continue
		}
		changes = append(changes, map[string]any{
			"file":   file,
			"change": string(code),
		})
	}
	return OK(map[string]any{"staged": a.Staged, "changes": changes})
}

func (tb *Toolbox) gitCommit(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path    string   `json:"path"`
		Message string   `json:"message"`
		AddAll  bool     `json:"add_all"`
		Files   []string `json:"files"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Message == "" {
		return Fail("commit message required")
	}
	repo, fail, ok := tb.openRepo(args, a.Path)
	if !ok {
		return fail
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Fail("%v", err)
	}

	if a.AddAll {
		if err := wt.AddGlob("."); err != nil {
			return Fail("%v", err)
		}
	} else {
		for _, f := range a.Files {
			if _, err := wt.Add(f); err != nil {
				return Fail("git add %s: %v", f, err)
			}
		}
	}

	hash, err := wt.Commit(a.Message, &git.CommitOptions{})
	if err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"commit": hash.String()})
}

func (tb *Toolbox) gitBranch(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path   string `json:"path"`
		Action string `json:"action"`
		Name   string `json:"name"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	repo, fail, ok := tb.openRepo(args, a.Path)
	if !ok {
		return fail
	}

	switch a.Action {
	case "", "list":
		iter, err := repo.Branches()
		if err != nil {
			return Fail("%v", err)
		}
		var names []string
		_ = iter.ForEach(func(ref *plumbing.Reference) error {
			names = append(names, ref.Name().Short())
			return nil
		})
		sort.Strings(names)
		return OK(map[string]any{"branches": names})

	case "create":
		if a.Name == "" {
			return Fail("branch name required")
		}
		head, err := repo.Head()
		if err != nil {
			return Fail("%v", err)
		}
		ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(a.Name), head.Hash())
		if err := repo.Storer.SetReference(ref); err != nil {
			return Fail("%v", err)
		}
		return OK(map[string]any{"branch": a.Name})

	case "switch", "checkout":
		if a.Name == "" {
			return Fail("branch name required")
		}
		wt, err := repo.Worktree()
		if err != nil {
			return Fail("%v", err)
		}
		err = wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(a.Name)})
		if err != nil {
			return Fail("%v", err)
		}
		return OK(map[string]any{"branch": a.Name})

	default:
		return Fail("unknown action: %s", a.Action)
	}
}

func (tb *Toolbox) gitRestore(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path   string   `json:"path"`
		Files  []string `json:"files"`
		Staged bool     `json:"staged"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if len(a.Files) == 0 {
		return Fail("files list required")
	}
	repo, fail, ok := tb.openRepo(args, a.Path)
	if !ok {
		return fail
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Fail("%v", err)
	}
	err = wt.Restore(&git.RestoreOptions{
		Files:    a.Files,
		Staged:   a.Staged,
		Worktree: !a.Staged,
	})
	if err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"restored": a.Files})
}

func sortedStatusFiles(status git.Status) []string {
	files := make([]string, 0, len(status))
	for file := range status {
		files = append(files, file)
	}
	sort.Strings(files)
	return files
}
