package tui

import (
	"github.com/muhammad-zulfikar/irnews/internal/cache"
)

type feedsLoadedMsg struct {
	articles []cache.Article
}

type feedErrMsg struct {
	err error
}

type refreshDoneMsg struct {
	count int
	errs  []error
}

// deskLoadedMsg carries the article snapshot the desk selects from.
type deskLoadedMsg struct {
	articles []cache.Article
}

// deskChangedMsg means the rotation ticked or the selection changed.
type deskChangedMsg struct{}

type snapshotMsg struct {
	articles []cache.Article
}
