package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/filesearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
)

const (
	modeFiles   = "files"
	modeSymbols = "symbols"
)

// command is one line of interactive input. A line starting with a single
// ':' is a command; anything else, including "::name" scope queries, is
// query text.
type command struct {
	verb string
	arg  string
}

func parseCommand(line string) command {
	if !strings.HasPrefix(line, ":") || strings.HasPrefix(line, "::") {
		return command{verb: "query", arg: line}
	}
	verb, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	return command{verb: verb, arg: strings.TrimSpace(arg)}
}

// parseProject reads "name@revision". Empty text and "default" select the
// default snapshot.
func parseProject(s string) (*symbolsearch.ProjectInfo, error) {
	if s == "" || s == "default" {
		return nil, nil
	}
	name, rev, ok := strings.Cut(s, "@")
	if !ok || name == "" || rev == "" {
		return nil, fmt.Errorf("project %q: want name@revision", s)
	}
	return &symbolsearch.ProjectInfo{Name: name, Revision: rev}, nil
}

// session drives one engine from interactive input and renders its results.
// It runs on the run loop goroutine.
type session struct {
	out     io.Writer
	project *symbolsearch.ProjectInfo
	files   *filesearch.Engine
	symbols *symbolsearch.Engine
	fetcher snapshot.FileFetcher
	bucket  int
}

func newFileSession(out io.Writer, e *filesearch.Engine, fetcher snapshot.FileFetcher, project *symbolsearch.ProjectInfo) *session {
	s := &session{out: out, project: project, files: e, fetcher: fetcher, bucket: -1}
	e.OnStep(s.onStep)
	e.OnComplete(s.render)
	return s
}

func newSymbolSession(out io.Writer, e *symbolsearch.Engine) *session {
	s := &session{out: out, project: e.Project(), symbols: e, bucket: -1}
	e.OnStep(s.onStep)
	e.OnComplete(s.render)
	return s
}

// load fetches the file list of the session's project into the file engine.
func (s *session) load() {
	if s.files == nil {
		return
	}
	project := s.project
	s.fetcher.FetchFiles(project, func(files []string, err error) {
		if err != nil {
			fmt.Fprintf(s.out, "error: loading %s: %v\n", project, err)
			return
		}
		if !symbolsearch.SameProject(project, s.project) {
			return
		}
		s.files.Reset(files)
		fmt.Fprintf(s.out, "loaded %d files from %s\n", len(files), project)
	})
}

// apply executes one input line and reports whether the session should end.
func (s *session) apply(line string) (quit bool, err error) {
	cmd := parseCommand(line)
	switch cmd.verb {
	case "query":
		s.bucket = -1
		s.setText(cmd.arg)
	case "clear":
		s.setText("")
	case "q", "quit":
		return true, nil
	case "max":
		n, err := strconv.Atoi(cmd.arg)
		if err != nil {
			return false, fmt.Errorf("max: %w", err)
		}
		if s.files != nil {
			err = s.files.SetMaxResults(n)
		} else {
			err = s.symbols.SetMaxResults(n)
		}
		if err != nil {
			return false, err
		}
		s.render()
	case "project":
		project, err := parseProject(cmd.arg)
		if err != nil {
			return false, err
		}
		s.project = project
		if s.files != nil {
			s.load()
		} else {
			s.symbols.Reconfigure(project)
		}
	case "filter":
		if s.symbols == nil {
			return false, fmt.Errorf("filter: only available in %s mode", modeSymbols)
		}
		return false, s.symbols.SetFilter(cmd.arg)
	case "kinds":
		if s.symbols == nil {
			return false, fmt.Errorf("kinds: only available in %s mode", modeSymbols)
		}
		var kinds []symbolsearch.Kind
		for _, name := range strings.Split(cmd.arg, ",") {
			k, err := symbolsearch.ParseKind(strings.TrimSpace(name))
			if err != nil {
				return false, err
			}
			kinds = append(kinds, k)
		}
		return false, s.symbols.SetKinds(kinds)
	case "filters":
		for _, f := range symbolsearch.Filters() {
			fmt.Fprintf(s.out, "  %-3s %s\n", f.Name, f.Description)
		}
	default:
		return false, fmt.Errorf("unknown command :%s", cmd.verb)
	}
	return false, nil
}

func (s *session) setText(text string) {
	if s.files != nil {
		s.files.SetSearchText(text)
	} else {
		s.symbols.SetSearchText(text)
	}
}

func (s *session) progress() float64 {
	if s.files != nil {
		return s.files.Progress()
	}
	return s.symbols.Progress()
}

// onStep prints progress in quarter steps while a scan runs.
func (s *session) onStep(changed bool) {
	pct := int(s.progress() * 100)
	if !changed || pct/25 == s.bucket {
		return
	}
	s.bucket = pct / 25
	fmt.Fprintf(s.out, "  ... %d%%\n", pct)
}

func (s *session) render() {
	if s.files != nil {
		rs := s.files.Results()
		fmt.Fprintf(s.out, "%d file(s) for %q\n", len(rs), s.files.SearchText())
		for _, r := range rs {
			fmt.Fprintf(s.out, "  %4d  %s\n", r.Score, highlight(r.Element, r.Matches))
		}
		return
	}
	rs := s.symbols.Results()
	qualified := s.symbols.Query() != nil && s.symbols.Query().Qualified()
	fmt.Fprintf(s.out, "%d symbol(s) for %q in %s\n", len(rs), s.symbols.SearchText(), s.project)
	for _, r := range rs {
		sym := r.Element
		var label string
		switch {
		case qualified:
			label = highlight(sym.QualifiedName, r.Matches)
		case sym.QualifiedName != "":
			label = highlight(sym.Name, r.Matches) + "  (" + sym.QualifiedName + ")"
		default:
			label = highlight(sym.Name, r.Matches)
		}
		fmt.Fprintf(s.out, "  %4d  %-14s %s\n", r.Score, sym.Kind, label)
	}
}

// highlight brackets the runes of text at the given rune offsets, merging
// adjacent offsets into one group.
func highlight(text string, indices []int) string {
	if len(indices) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 2*len(indices))
	next, open, pos := 0, false, 0
	for _, r := range text {
		hit := next < len(indices) && indices[next] == pos
		if hit && !open {
			b.WriteByte('[')
			open = true
		} else if !hit && open {
			b.WriteByte(']')
			open = false
		}
		if hit {
			next++
		}
		b.WriteRune(r)
		pos++
	}
	if open {
		b.WriteByte(']')
	}
	return b.String()
}
