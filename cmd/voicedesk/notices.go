package main

import (
	"fmt"
	"strings"
	"sync"
)

// noticeBoard collects the local-effect tool outcomes the TUI renders. It
// serializes its own mutations, so tool handlers can call it from any
// goroutine.
type noticeBoard struct {
	mu       sync.Mutex
	notices  []string
	followed []string
}

func newNoticeBoard() *noticeBoard {
	return &noticeBoard{}
}

func (b *noticeBoard) ShowColorPalette(theme string, colors []string) {
	b.add(fmt.Sprintf("palette %q: %s", theme, strings.Join(colors, " ")))
}

func (b *noticeBoard) Print(message string) {
	b.add("print: " + message)
}

func (b *noticeBoard) FollowStock(ticker string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.followed {
		if existing == ticker {
			return
		}
	}
	b.followed = append(b.followed, ticker)
}

func (b *noticeBoard) add(notice string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, notice)
}

func (b *noticeBoard) snapshot() (notices, followed []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.notices...), append([]string(nil), b.followed...)
}
