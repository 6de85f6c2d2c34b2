package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"golang.org/x/term"

	"knowsearch"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TUI: three-mode keystroke surface
// ═══════════════════════════════════════════════════════════════════════════════
// The terminal alternates between three modes (Normal, Query, Result
// browsing) driven by a single byte-at-a-time keystroke loop, using
// golang.org/x/term for raw-mode input and plain ANSI escape codes for
// rendering rather than a full widget-layout library.
// ═══════════════════════════════════════════════════════════════════════════════

type uiMode int

const (
	modeNormal uiMode = iota
	modeQuery
	modeResult
)

func (m uiMode) String() string {
	switch m {
	case modeQuery:
		return "Query input"
	case modeResult:
		return "Result browsing"
	default:
		return "Normal"
	}
}

type tuiApp struct {
	facade  *knowsearch.Facade
	watcher *knowsearch.Watcher
	mode    uiMode

	queryInput  []rune
	lastQuery   string
	results     []knowsearch.ScoredPath
	selected    int
	noResultMsg bool
}

// runTUI drives the keystroke loop until the user quits from Normal mode
// with 'q'. The watcher is drained once per keystroke read, so filesystem
// changes surface between keystrokes rather than on a background timer.
func runTUI(facade *knowsearch.Facade, watcher *knowsearch.Watcher) error {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, oldState)

	app := &tuiApp{facade: facade, watcher: watcher, mode: modeNormal}
	reader := bufio.NewReader(os.Stdin)

	app.render()
	for {
		watcher.Drain()

		b, err := reader.ReadByte()
		if err != nil {
			return err
		}
		if app.handleByte(b) {
			return nil
		}
		app.render()
	}
}

// handleByte applies one input byte and returns true when the user has
// requested to quit.
func (app *tuiApp) handleByte(b byte) bool {
	const ctrlC = 3
	const backspace1 = 127
	const backspace2 = 8
	const enter = '\r'

	if b == ctrlC {
		app.mode = modeNormal
		return false
	}

	switch app.mode {
	case modeNormal:
		switch b {
		case 'q':
			return true
		case 'j':
			app.mode = modeQuery
			app.queryInput = app.queryInput[:0]
		case 'k':
			app.mode = modeResult
		}
	case modeQuery:
		switch b {
		case backspace1, backspace2:
			if len(app.queryInput) > 0 {
				app.queryInput = app.queryInput[:len(app.queryInput)-1]
			}
		case enter, '\n':
			if len(app.queryInput) > 0 {
				app.search()
			}
		default:
			if b >= 0x20 && b < 0x7f {
				app.queryInput = append(app.queryInput, rune(b))
			}
		}
	case modeResult:
		switch b {
		case 'j':
			app.moveSelection(1)
		case 'k':
			app.moveSelection(-1)
		case enter, '\n':
			app.openSelected()
		}
	}
	return false
}

// search dispatches the current query: a "..."-wrapped query (length > 2)
// runs a phrase search with quotes stripped, otherwise a simple ranked
// search. At most 5 results are kept.
func (app *tuiApp) search() {
	query := strings.TrimSpace(string(app.queryInput))
	app.lastQuery = query

	var results []knowsearch.ScoredPath
	if len(query) > 2 && strings.HasPrefix(query, `"`) && strings.HasSuffix(query, `"`) {
		phrase := strings.Trim(query, `"`)
		results = app.facade.SearchPhrase([]rune(phrase))
	} else {
		results = app.facade.SearchSimple([]rune(query))
	}
	if len(results) > 5 {
		results = results[:5]
	}

	app.results = results
	if len(results) == 0 {
		app.noResultMsg = true
		app.mode = modeNormal
		return
	}
	app.noResultMsg = false
	app.selected = 0
	app.mode = modeResult
}

func (app *tuiApp) moveSelection(delta int) {
	n := len(app.results)
	if n == 0 {
		return
	}
	app.selected = ((app.selected+delta)%n + n) % n
}

func (app *tuiApp) openSelected() {
	if app.selected < 0 || app.selected >= len(app.results) {
		return
	}
	_ = openInDefaultApp(app.results[app.selected].Path)
}

func openInDefaultApp(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	return cmd.Start()
}

func (app *tuiApp) render() {
	var sb strings.Builder
	sb.WriteString("\x1b[2J\x1b[H")
	fmt.Fprintf(&sb, "knowsearch - mode: %s\r\n\r\n", app.mode)

	switch app.mode {
	case modeNormal:
		sb.WriteString("j: search   k: browse results   q: quit\r\n")
		if app.noResultMsg {
			fmt.Fprintf(&sb, "\r\nNo results found for the query %q\r\n", app.lastQuery)
		}
	case modeQuery:
		fmt.Fprintf(&sb, "query> %s\r\n", string(app.queryInput))
		sb.WriteString("\r\nEnter: search   Backspace: delete   Ctrl-C: cancel\r\n")
	case modeResult:
		fmt.Fprintf(&sb, "results for %q:\r\n\r\n", app.lastQuery)
		for i, r := range app.results {
			marker := "  "
			if i == app.selected {
				marker = "> "
			}
			fmt.Fprintf(&sb, "%s%s  (%.4f)\r\n", marker, r.Path, r.Rank)
		}
		sb.WriteString("\r\nj/k: move   Enter: open   Ctrl-C: back\r\n")
	}

	os.Stdout.WriteString(sb.String())
}
