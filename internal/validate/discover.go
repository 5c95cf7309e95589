package validate

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// jsonPointers is the fixed list of dotted paths probed in JSON sources,
// in order.
var jsonPointers = []string{
	"validation.commands",
	"validation.command",
	"scripts.check",
	"scripts.test",
}

// DiscoverCommands probes the configuration discovery files in priority
// order — ito.json, .ito/config.json, AGENTS.md, CLAUDE.md — and returns the
// commands from the first source that yields any, plus that source's name.
func DiscoverCommands(dir string) (commands []string, source string) {
	probes := []struct {
		name string
		fn   func(path string) []string
	}{
		{"ito.json", fromJSON},
		{filepath.Join(".ito", "config.json"), fromJSON},
		{"AGENTS.md", fromMarkdown},
		{"CLAUDE.md", fromMarkdown},
	}

	for _, p := range probes {
		if cmds := p.fn(filepath.Join(dir, p.name)); len(cmds) > 0 {
			return cmds, p.name
		}
	}
	return nil, ""
}

// fromJSON probes the fixed dotted pointers. The value at a pointer may be a
// single command string or an ordered list; non-string leaves are ignored.
func fromJSON(path string) []string {
	data, err := os.ReadFile(path) //nolint:gosec // fixed discovery file names
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	for _, pointer := range jsonPointers {
		value, ok := lookup(doc, pointer)
		if !ok {
			continue
		}
		if cmds := asCommands(value); len(cmds) > 0 {
			return cmds
		}
	}
	return nil
}

func lookup(doc map[string]any, pointer string) (any, bool) {
	var current any = doc
	for _, seg := range strings.Split(pointer, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func asCommands(value any) []string {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) != "" {
			return []string{v}
		}
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// fromMarkdown scans for lines containing a bare `make check` or `make test`,
// inside or outside fenced code blocks. A leading shell prompt marker is
// tolerated. Order is preserved, duplicates dropped.
func fromMarkdown(path string) []string {
	f, err := os.Open(path) //nolint:gosec // fixed discovery file names
	if err != nil {
		return nil
	}
	defer f.Close() //nolint:errcheck // read-only

	var out []string
	seen := map[string]bool{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "$ ")
		line = strings.TrimSpace(strings.TrimPrefix(line, "`"))
		line = strings.TrimSpace(strings.TrimSuffix(line, "`"))
		if line != "make check" && line != "make test" {
			continue
		}
		if !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	return out
}
