package snapshot

import (
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/filesearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/internal/symbolsearch"
	"github.com/Adithya-Monish-Kumar-K/Code-Navigation-Search/pkg/logger"
)

// FileFetcher loads file lists asynchronously; deliver runs on the engines'
// goroutine.
type FileFetcher interface {
	FetchFiles(project *symbolsearch.ProjectInfo, deliver func([]string, error))
}

// ReloadSymbols returns a hook that reloads e when an event affects the
// project it searches.
func ReloadSymbols(e *symbolsearch.Engine) func(RebuiltEvent) {
	return func(ev RebuiltEvent) {
		if ev.Affects(e.Project()) {
			e.Reload()
		}
	}
}

// ReloadFiles returns a hook that refetches the file list into e when an
// event affects the project reported by current. A failed refetch leaves the
// engine on its current list.
func ReloadFiles(e *filesearch.Engine, fetcher FileFetcher, current func() *symbolsearch.ProjectInfo) func(RebuiltEvent) {
	log := logger.WithComponent("snapshot-listener")
	return func(ev RebuiltEvent) {
		project := current()
		if !ev.Affects(project) {
			return
		}
		fetcher.FetchFiles(project, func(files []string, err error) {
			if err != nil {
				log.Warn("file list reload failed", "project", project.String(), "error", err)
				return
			}
			if !symbolsearch.SameProject(project, current()) {
				return
			}
			e.Reset(files)
		})
	}
}
