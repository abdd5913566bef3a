// Filesystem tools: read, write, append, list, mkdir, copy, glob, search,
// tempfile, and search/replace editing. Every path goes through the sandbox
// policy; out-of-root refusals surface as confirmation requests.

package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func (tb *Toolbox) filesystemSpecs() []Spec {
	return []Spec{
		{
			Name:        "fs.read",
			Description: "Ler o conteúdo de um arquivo de texto",
			Params:      map[string]string{"path": "str", "max_bytes": "int?", "encoding": "str?"},
			Func:        tb.fsRead,
		},
		{
			Name:        "fs.write",
			Description: "Escrever conteúdo em um arquivo (sobrescreve)",
			Params:      map[string]string{"path": "str", "content": "str"},
			Func:        tb.fsWrite,
		},
		{
			Name:        "fs.append",
			Description: "Anexar conteúdo ao final de um arquivo",
			Params:      map[string]string{"path": "str", "content": "str"},
			Func:        tb.fsAppend,
		},
		{
			Name:        "fs.list",
			Description: "Listar arquivos de um diretório",
			Params:      map[string]string{"directory": "str?", "glob": "str?"},
			Func:        tb.fsList,
		},
		{
			Name:        "fs.mkdir",
			Description: "Criar um diretório (incluindo pais)",
			Params:      map[string]string{"path": "str"},
			Func:        tb.fsMkdir,
		},
		{
			Name:        "fs.copy",
			Description: "Copiar um arquivo",
			Params:      map[string]string{"src": "str", "dest": "str"},
			Func:        tb.fsCopy,
		},
		{
			Name:        "fs.glob",
			Description: "Buscar arquivos por padrão glob",
			Params:      map[string]string{"directory": "str?", "pattern": "str"},
			Func:        tb.fsGlob,
		},
		{
			Name:        "fs.search",
			Description: "Buscar texto dentro dos arquivos de um diretório",
			Params:      map[string]string{"directory": "str?", "query": "str"},
			Func:        tb.fsSearch,
		},
		{
			Name:        "fs.tempfile",
			Description: "Criar um arquivo temporário dentro do sandbox",
			Params:      map[string]string{"prefix": "str?", "content": "str?"},
			Func:        tb.fsTempfile,
		},
		{
			Name:        "edit.replace",
			Description: "Substituir texto em um arquivo (busca literal)",
			Params:      map[string]string{"path": "str", "find": "str", "replace": "str", "count": "int?"},
			Func:        tb.editReplace,
		},
	}
}

func (tb *Toolbox) fsRead(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path     string `json:"path"`
		MaxBytes int64  `json:"max_bytes"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Path == "" {
		return Fail("parâmetro 'path' obrigatório")
	}
	if a.MaxBytes <= 0 {
		a.MaxBytes = tb.limits.MaxReadBytes
	}

	abs, confirm := tb.readableOrConfirm("fs.read", a.Path,
		map[string]any{"path": a.Path, "max_bytes": a.MaxBytes}, args)
	if confirm != nil {
		return *confirm
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return Fail("file not found")
	}
	f, err := os.Open(abs)
	if err != nil {
		return Fail("%v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, a.MaxBytes))
	if err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{
		"path":      abs,
		"content":   string(data),
		"truncated": info.Size() > a.MaxBytes,
	})
}

func (tb *Toolbox) fsWrite(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Path == "" {
		return Fail("parâmetro 'path' obrigatório")
	}

	abs, confirm := tb.writableOrConfirm("fs.write", a.Path,
		map[string]any{"path": a.Path, "bytes": len(a.Content)}, args)
	if confirm != nil {
		return *confirm
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Fail("%v", err)
	}
	if err := os.WriteFile(abs, []byte(a.Content), 0o644); err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"path": abs, "bytes": len(a.Content)})
}

func (tb *Toolbox) fsAppend(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Path == "" {
		return Fail("parâmetro 'path' obrigatório")
	}

	abs, confirm := tb.writableOrConfirm("fs.append", a.Path,
		map[string]any{"path": a.Path, "bytes": len(a.Content)}, args)
	if confirm != nil {
		return *confirm
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Fail("%v", err)
	}
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Fail("%v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(a.Content); err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"path": abs, "bytes": len(a.Content)})
}

const maxListItems = 1000

func (tb *Toolbox) fsList(ctx context.Context, args map[string]any) Result {
	var a struct {
		Directory string `json:"directory"`
		Glob      string `json:"glob"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Directory == "" {
		a.Directory = "."
	}

	abs, confirm := tb.readableOrConfirm("fs.list", a.Directory,
		map[string]any{"directory": a.Directory, "glob": a.Glob}, args)
	if confirm != nil {
		return *confirm
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return Fail("directory not found")
	}

	var items []string
	if a.Glob != "" {
		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if len(items) >= maxListItems {
				return filepath.SkipAll
			}
			if matched, _ := filepath.Match(a.Glob, d.Name()); matched {
				items = append(items, path)
			}
			return nil
		})
		if err != nil {
			return Fail("%v", err)
		}
	} else {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return Fail("%v", err)
		}
		for _, e := range entries {
			if len(items) >= maxListItems {
				break
			}
			items = append(items, filepath.Join(abs, e.Name()))
		}
	}
	return OK(map[string]any{"directory": abs, "items": items})
}

func (tb *Toolbox) fsMkdir(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Path == "" {
		return Fail("parâmetro 'path' obrigatório")
	}

	abs, confirm := tb.writableOrConfirm("fs.mkdir", a.Path,
		map[string]any{"path": a.Path}, args)
	if confirm != nil {
		return *confirm
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"path": abs})
}

func (tb *Toolbox) fsCopy(ctx context.Context, args map[string]any) Result {
	var a struct {
		Src  string `json:"src"`
		Dest string `json:"dest"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Src == "" || a.Dest == "" {
		return Fail("parâmetros 'src' e 'dest' obrigatórios")
	}

	meta := map[string]any{"src": a.Src, "dest": a.Dest}
	srcAbs, confirm := tb.readableOrConfirm("fs.copy", a.Src, meta, args)
	if confirm != nil {
		return *confirm
	}
	destAbs, confirm := tb.writableOrConfirm("fs.copy", a.Dest, meta, args)
	if confirm != nil {
		return *confirm
	}

	src, err := os.Open(srcAbs)
	if err != nil {
		return Fail("%v", err)
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(destAbs), 0o755); err != nil {
		return Fail("%v", err)
	}
	dest, err := os.Create(destAbs)
	if err != nil {
		return Fail("%v", err)
	}
	defer dest.Close()

	n, err := io.Copy(dest, src)
	if err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"src": srcAbs, "dest": destAbs, "bytes": n})
}

func (tb *Toolbox) fsGlob(ctx context.Context, args map[string]any) Result {
	var a struct {
		Directory string `json:"directory"`
		Pattern   string `json:"pattern"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Pattern == "" {
		return Fail("parâmetro 'pattern' obrigatório")
	}
	if a.Directory == "" {
		a.Directory = "."
	}

	abs, confirm := tb.readableOrConfirm("fs.glob", a.Directory,
		map[string]any{"directory": a.Directory, "pattern": a.Pattern}, args)
	if confirm != nil {
		return *confirm
	}

	var matches []string
	err := filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if len(matches) >= maxListItems {
			return filepath.SkipAll
		}
		if matched, _ := filepath.Match(a.Pattern, d.Name()); matched {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"directory": abs, "matches": matches})
}

const maxSearchChars = 200_000

func (tb *Toolbox) fsSearch(ctx context.Context, args map[string]any) Result {
	var a struct {
		Directory string `json:"directory"`
		Query     string `json:"query"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if strings.TrimSpace(a.Query) == "" {
		return Fail("parâmetro 'query' obrigatório")
	}
	if a.Directory == "" {
		a.Directory = "."
	}

	abs, confirm := tb.readableOrConfirm("fs.search", a.Directory,
		map[string]any{"directory": a.Directory, "query": a.Query}, args)
	if confirm != nil {
		return *confirm
	}

	var lines []string
	total := 0
	err := filepath.WalkDir(abs, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || total >= maxSearchChars {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > tb.limits.MaxReadBytes {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, a.Query) {
				match := fmt.Sprintf("%s:%d:%s", path, i+1, line)
				lines = append(lines, match)
				total += len(match)
				if total >= maxSearchChars {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	if err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"matches": strings.Join(lines, "\n")})
}

func (tb *Toolbox) fsTempfile(ctx context.Context, args map[string]any) Result {
	var a struct {
		Prefix  string `json:"prefix"`
		Content string `json:"content"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Prefix == "" {
		a.Prefix = "lori-"
	}

	f, err := os.CreateTemp(tb.policy.Root, a.Prefix+"*")
	if err != nil {
		return Fail("%v", err)
	}
	defer f.Close()
	if a.Content != "" {
		if _, err := f.WriteString(a.Content); err != nil {
			return Fail("%v", err)
		}
	}
	return OK(map[string]any{"path": f.Name(), "bytes": len(a.Content)})
}

func (tb *Toolbox) editReplace(ctx context.Context, args map[string]any) Result {
	var a struct {
		Path    string `json:"path"`
		Find    string `json:"find"`
		Replace string `json:"replace"`
		Count   int    `json:"count"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return Fail("%v", err)
	}
	if a.Path == "" || a.Find == "" {
		return Fail("parâmetros 'path' e 'find' obrigatórios")
	}

	abs, confirm := tb.writableOrConfirm("edit.replace", a.Path,
		map[string]any{"path": a.Path, "find": a.Find, "replace": a.Replace}, args)
	if confirm != nil {
		return *confirm
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return Fail("file not found")
	}
	text := string(data)

	occurrences := strings.Count(text, a.Find)
	if occurrences == 0 {
		return Fail("texto não encontrado no arquivo")
	}
	n := a.Count
	if n <= 0 || n > occurrences {
		n = occurrences
	}
	updated := strings.Replace(text, a.Find, a.Replace, n)
	if err := os.WriteFile(abs, []byte(updated), 0o644); err != nil {
		return Fail("%v", err)
	}
	return OK(map[string]any{"path": abs, "replaced": n})
}
