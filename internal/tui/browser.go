package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/icco/videoseq/internal/sequencer"
)

// projectExtensions are the document formats the browser offers to open.
var projectExtensions = []string{".json", ".yaml", ".yml"}

type fileBrowserModel struct {
	currentDir  string
	files       []fileInfo
	cursor      int
	viewportTop int
	message     string
}

type fileInfo struct {
	name  string
	path  string
	isDir bool
}

func isProjectFile(name string) bool {
	return slices.Contains(projectExtensions, strings.ToLower(filepath.Ext(name)))
}

func (fb *fileBrowserModel) loadFiles() {
	fb.files = nil

	if parent := filepath.Dir(fb.currentDir); parent != fb.currentDir {
		fb.files = append(fb.files, fileInfo{name: "..", path: parent, isDir: true})
	}

	entries, err := os.ReadDir(fb.currentDir)
	if err != nil {
		fb.message = fmt.Sprintf("Error reading directory: %v", err)
		return
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.IsDir() || isProjectFile(entry.Name()) {
			fb.files = append(fb.files, fileInfo{
				name:  entry.Name(),
				path:  filepath.Join(fb.currentDir, entry.Name()),
				isDir: entry.IsDir(),
			})
		}
	}

	if fb.cursor >= len(fb.files) {
		fb.cursor = max(len(fb.files)-1, 0)
	}
	fb.viewportTop = min(fb.viewportTop, fb.cursor)
}

// visibleLines is how many entries fit under the browser header.
func (m Model) visibleLines() int {
	if m.height == 0 {
		return len(m.browser.files)
	}
	return max(m.height-9, 5)
}

func (m Model) updateFileBrowser(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	fb := &m.browser
	visible := m.visibleLines()

	switch msg.String() {
	case keyUp, "k":
		if fb.cursor > 0 {
			fb.cursor--
		}
		if fb.cursor < fb.viewportTop {
			fb.viewportTop = fb.cursor
		}
	case keyDown, "j":
		if fb.cursor < len(fb.files)-1 {
			fb.cursor++
		}
		if fb.cursor >= fb.viewportTop+visible {
			fb.viewportTop = fb.cursor - visible + 1
		}
	case "enter":
		if len(fb.files) == 0 {
			return m, nil
		}
		selected := fb.files[fb.cursor]
		if selected.isDir {
			fb.currentDir = selected.path
			fb.cursor = 0
			fb.viewportTop = 0
			fb.message = ""
			fb.loadFiles()
			return m, nil
		}
		if err := m.openProject(selected.path); err != nil {
			fb.message = fmt.Sprintf("Error opening project: %v", err)
			return m, nil
		}
		m.editor = newEditor(fmt.Sprintf("Loaded: %s", selected.name))
		m.mode = sequencerMode
	case "n":
		if err := m.seq.Replace(sequencer.DefaultProjectState()); err != nil {
			fb.message = fmt.Sprintf("Error creating project: %v", err)
			return m, nil
		}
		m.editor = newEditor("New project")
		m.mode = sequencerMode
	}

	return m, nil
}

func (m Model) openProject(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.opts.Importer.Import(context.Background(), m.seq, data)
}

func (m Model) viewFileBrowser() string {
	fb := m.browser
	var b strings.Builder

	b.WriteString(titleStyle.Render("VIDEOSEQ - Video Sequencer") + "\n\n")
	b.WriteString(fmt.Sprintf("Current Directory: %s\n\n", fb.currentDir))

	if len(fb.files) == 0 {
		b.WriteString("No projects or directories found.\n")
	}
	end := min(fb.viewportTop+m.visibleLines(), len(fb.files))
	for i := fb.viewportTop; i < end; i++ {
		file := fb.files[i]
		name := projectStyle.Render(file.name)
		if file.isDir {
			name = dirStyle.Render(file.name + "/")
		}
		if i == fb.cursor {
			b.WriteString(selectedStyle.Render("> "+name) + "\n")
		} else {
			b.WriteString("  " + name + "\n")
		}
	}

	b.WriteString("\n")
	if fb.message != "" {
		b.WriteString(errorStyle.Render(fb.message) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("↑/k: up • ↓/j: down • enter: open • n: new project • q: quit"))

	return b.String()
}
