// Package tasks parses a change's tasks.md into per-task statuses and
// aggregate counts.
package tasks

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Status of a single task.
type Status string

// Task statuses. Checkbox markers: " " pending, "~" in progress, "x" complete,
// "s" shelved.
const (
	Pending    Status = "pending"
	InProgress Status = "in_progress"
	Complete   Status = "complete"
	Shelved    Status = "shelved"
)

// Task is one checkbox row from tasks.md.
type Task struct {
	ID     string
	Title  string
	Status Status
}

// List holds a change's parsed tasks plus list-level metadata from the
// optional YAML frontmatter.
type List struct {
	Tasks   []Task
	Blocked bool
}

// Counts aggregates tasks by status.
type Counts struct {
	Total      int
	Pending    int
	InProgress int
	Complete   int
	Shelved    int
}

var taskLineRe = regexp.MustCompile(`^- \[([ xX~s])\]\s+(.+)$`)
var taskIDRe = regexp.MustCompile(`^(\S+):\s+(.+)$`)

type frontmatter struct {
	Status string `yaml:"status"`
}

// ParseFile reads a tasks.md. A missing file yields an empty list.
func ParseFile(path string) (*List, error) {
	f, err := os.Open(path) //nolint:gosec // path is derived from a validated change id
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &List{}, nil
		}
		return nil, fmt.Errorf("opening tasks: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	return parse(f)
}

func parse(f *os.File) (*List, error) {
	list := &List{}
	scanner := bufio.NewScanner(f)

	var fmLines []string
	inFrontmatter := false
	first := true

	for scanner.Scan() {
		line := scanner.Text()

		if first {
			first = false
			if strings.TrimSpace(line) == "---" {
				inFrontmatter = true
				continue
			}
		}
		if inFrontmatter {
			if strings.TrimSpace(line) == "---" {
				inFrontmatter = false
				var fm frontmatter
				if err := yaml.Unmarshal([]byte(strings.Join(fmLines, "\n")), &fm); err != nil {
					return nil, fmt.Errorf("parsing tasks frontmatter: %w", err)
				}
				list.Blocked = fm.Status == "blocked"
				continue
			}
			fmLines = append(fmLines, line)
			continue
		}

		m := taskLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		task := Task{Status: markerStatus(m[1]), Title: m[2]}
		if idm := taskIDRe.FindStringSubmatch(m[2]); idm != nil {
			task.ID = idm[1]
			task.Title = idm[2]
		} else {
			task.ID = fmt.Sprintf("task-%d", len(list.Tasks)+1)
		}
		list.Tasks = append(list.Tasks, task)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning tasks: %w", err)
	}
	return list, nil
}

func markerStatus(marker string) Status {
	switch marker {
	case "x", "X":
		return Complete
	case "~":
		return InProgress
	case "s":
		return Shelved
	default:
		return Pending
	}
}

// Counts tallies tasks by status.
func (l *List) Counts() Counts {
	c := Counts{Total: len(l.Tasks)}
	for _, t := range l.Tasks {
		switch t.Status {
		case Pending:
			c.Pending++
		case InProgress:
			c.InProgress++
		case Complete:
			c.Complete++
		case Shelved:
			c.Shelved++
		}
	}
	return c
}

// Done reports whether every task is complete or shelved.
func (l *List) Done() bool {
	for _, t := range l.Tasks {
		if t.Status == Pending || t.Status == InProgress {
			return false
		}
	}
	return true
}

// Remaining returns up to n pending or in-progress tasks, in file order.
func (l *List) Remaining(n int) []Task {
	var out []Task
	for _, t := range l.Tasks {
		if t.Status != Pending && t.Status != InProgress {
			continue
		}
		out = append(out, t)
		if len(out) == n {
			break
		}
	}
	return out
}
