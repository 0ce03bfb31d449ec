package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/BitEnterprise/wasm-jit-prototype/runtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type probeState int

const (
	stateList probeState = iota
	stateInputPages
)

type memoryOp int

const (
	opGrow memoryOp = iota
	opShrink
)

func (op memoryOp) String() string {
	if op == opGrow {
		return "grow"
	}
	return "shrink"
}

type probeModel struct {
	compartment *runtime.Compartment
	scratch     *runtime.Compartment
	typ         runtime.MemoryType

	rows     []*runtime.Memory
	selected int

	state probeState
	op    memoryOp
	input textinput.Model

	status    string
	statusErr bool
}

func newProbeModel(typ runtime.MemoryType, numMemories int) (*probeModel, error) {
	c := runtime.NewCompartment()
	for i := 0; i < numMemories; i++ {
		if _, err := runtime.CreateMemory(c, typ); err != nil {
			c.Close()
			return nil, fmt.Errorf("create memory %d: %w", i, err)
		}
	}

	input := textinput.New()
	input.Placeholder = "pages"
	input.Prompt = "pages: "
	input.Width = 10

	m := &probeModel{
		compartment: c,
		typ:         typ,
		input:       input,
	}
	m.refresh()
	return m, nil
}

func (m *probeModel) refresh() {
	m.rows = m.compartment.Memories()
	if m.selected >= len(m.rows) {
		m.selected = len(m.rows) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m *probeModel) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m *probeModel) Init() tea.Cmd {
	return nil
}

func (m *probeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch m.state {
	case stateList:
		return m.updateList(keyMsg)
	case stateInputPages:
		return m.updateInput(keyMsg)
	}
	return m, nil
}

func (m *probeModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.compartment.Close()
		if m.scratch != nil {
			m.scratch.Close()
		}
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}

	case "n":
		mem, err := runtime.CreateMemory(m.compartment, m.typ)
		if err != nil {
			m.setStatus(err.Error(), true)
		} else {
			m.setStatus(fmt.Sprintf("created memory %d at %#x", mem.ID(), mem.Base()), false)
		}
		m.refresh()

	case "g", "s":
		if len(m.rows) == 0 {
			m.setStatus("no memory selected", true)
			break
		}
		m.op = opGrow
		if msg.String() == "s" {
			m.op = opShrink
		}
		m.input.SetValue("")
		m.input.Focus()
		m.state = stateInputPages

	case "c":
		if len(m.rows) == 0 {
			m.setStatus("no memory selected", true)
			break
		}
		m.cloneSelected()

	case "d":
		if len(m.rows) == 0 {
			m.setStatus("no memory selected", true)
			break
		}
		mem := m.rows[m.selected]
		id := mem.ID()
		mem.Finalize()
		mem.Destroy()
		m.setStatus(fmt.Sprintf("destroyed memory %d", id), false)
		m.refresh()
	}
	return m, nil
}

func (m *probeModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.compartment.Close()
		if m.scratch != nil {
			m.scratch.Close()
		}
		return m, tea.Quit

	case "esc":
		m.state = stateList
		return m, nil

	case "enter":
		m.applyPagesOp()
		m.state = stateList
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// cloneSelected copies the selected memory into the scratch compartment,
// creating it on first use. A memory keeps its id across cloning, so a
// second clone of the same id would collide; refuse it instead.
func (m *probeModel) cloneSelected() {
	src := m.rows[m.selected]
	if m.scratch == nil {
		m.scratch = runtime.NewCompartment()
	}
	if _, ok := m.scratch.Memory(src.ID()); ok {
		m.setStatus(fmt.Sprintf("memory %d is already cloned", src.ID()), true)
		return
	}
	clone, err := runtime.CloneMemory(src, m.scratch)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("cloned memory %d to base %#x", clone.ID(), clone.Base()), false)
}

func (m *probeModel) applyPagesOp() {
	pages, err := strconv.ParseUint(strings.TrimSpace(m.input.Value()), 10, 64)
	if err != nil {
		m.setStatus(fmt.Sprintf("invalid page count %q", m.input.Value()), true)
		return
	}
	mem := m.rows[m.selected]

	var prev uint64
	if m.op == opGrow {
		prev, err = mem.Grow(pages)
	} else {
		prev, err = mem.Shrink(pages)
	}
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("%s memory %d: %d -> %d pages", m.op, mem.ID(), prev, mem.NumPages()), false)
}

func (m *probeModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Memory Probe"))
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(helpStyle.Render("  no memories, press n to create one"))
		b.WriteString("\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("  %-4s %-16s %-11s %-10s %s",
			"ID", "BASE", "PAGES", "COMMITTED", "RESERVED")))
		b.WriteString("\n")
		for i, mem := range m.rows {
			line := fmt.Sprintf("%-4d %-16s %-11s %-10s %s",
				mem.ID(),
				fmt.Sprintf("%#x", mem.Base()),
				fmt.Sprintf("%d/%d", mem.NumPages(), mem.MaxPages()),
				formatBytes(mem.Size()),
				formatBytes(uint64(mem.ReservationSize())))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
	}

	if m.scratch != nil {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  scratch compartment: %d clones\n", m.scratch.NumMemories()))
	}

	if m.state == stateInputPages {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s memory %d\n", m.op, m.rows[m.selected].ID()))
		b.WriteString("  " + m.input.View() + "\n")
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter apply • esc cancel"))
		b.WriteString("\n")
		return b.String()
	}

	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString("  " + errorStyle.Render(m.status))
		} else {
			b.WriteString("  " + statusStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • n new • g grow • s shrink • c clone • d destroy • q quit"))
	b.WriteString("\n")
	return b.String()
}

func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%dGiB", n>>30)
	case n >= 1<<20:
		return fmt.Sprintf("%dMiB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%dKiB", n>>10)
	}
	return fmt.Sprintf("%dB", n)
}

func runInteractive(typ runtime.MemoryType, numMemories int) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}

	model, err := newProbeModel(typ, numMemories)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive session failed: %w", err)
	}
	return nil
}
