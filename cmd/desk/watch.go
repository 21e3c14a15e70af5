package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/desk"
	"github.com/urfave/cli/v3"
)

// deskClient is the part of the desk the watch screen drives.
type deskClient interface {
	State() desk.StateView
	Select(ctx context.Context, key string) (desk.RefreshResult, error)
	RefreshAll(ctx context.Context) desk.RefreshReport
}

// DeskEventMsg carries a desk event into the program.
type DeskEventMsg struct {
	Event desk.Event
}

// RefreshDoneMsg reports the end of a refresh started from the screen.
type RefreshDoneMsg struct {
	Err error
}

// WatchModel is the Bubble Tea model of the live instrument screen.
type WatchModel struct {
	client     deskClient
	ctx        context.Context
	state      desk.StateView
	prevPrices map[string]optional.Option[float64]
	table      table.Model
	lastEvent  string
	busy       bool
	err        error
	width      int
	height     int
}

// NewWatchModel loads the current desk state into a new model.
func NewWatchModel(ctx context.Context, client deskClient) WatchModel {
	m := WatchModel{
		client:     client,
		ctx:        ctx,
		prevPrices: make(map[string]optional.Option[float64]),
		table:      NewInstrumentTable(),
	}

	m.reload()

	return m
}

func (m *WatchModel) reload() {
	for _, v := range m.state.Instruments {
		m.prevPrices[v.Instrument.Key] = v.Price
	}

	m.state = m.client.State()
	m.table = UpdateInstrumentRows(m.table, m.state.Instruments, m.prevPrices)
}

// SelectedKey returns the key of the highlighted row.
func (m WatchModel) SelectedKey() string {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.state.Instruments) {
		return ""
	}

	return m.state.Instruments[idx].Instrument.Key
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			key := m.SelectedKey()
			if key == "" || m.busy {
				return m, nil
			}

			m.busy = true

			return m, m.selectCmd(key)
		case "r":
			if m.busy {
				return m, nil
			}

			m.busy = true

			return m, m.refreshCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-8, 3))

		return m, nil

	case DeskEventMsg:
		m.lastEvent = DescribeEvent(msg.Event)
		m.reload()

		return m, nil

	case RefreshDoneMsg:
		m.busy = false
		m.err = msg.Err
		m.reload()

		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m WatchModel) selectCmd(key string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.client.Select(m.ctx, key)
		if err != nil {
			return RefreshDoneMsg{Err: err}
		}

		return RefreshDoneMsg{Err: result.Err}
	}
}

func (m WatchModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		return RefreshDoneMsg{Err: m.client.RefreshAll(m.ctx).Err()}
	}
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render(fmt.Sprintf("Trading Desk - %s - %s", m.state.Preferences.Base, m.state.Status)))
	if m.state.Preferences.Player != "" {
		s.WriteString(HelpStyle.Render("  player " + m.state.Preferences.Player))
	}
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	if len(m.state.Instruments) == 0 {
		s.WriteString("No instruments yet. Add one with: desk add cg:bitcoin\n")
	} else {
		s.WriteString(m.table.View())
		s.WriteString("\n")
	}

	s.WriteString(fmt.Sprintf("\nPortfolio %.2f %s", m.state.Portfolio.Total, m.state.Preferences.Base))
	if m.lastEvent != "" {
		s.WriteString(HelpStyle.Render("  last: " + m.lastEvent))
	}
	s.WriteString("\n")

	help := "enter: select | r: refresh | q: quit"
	if m.busy {
		help = "refreshing... | q: quit"
	}
	s.WriteString(HelpStyle.Render(help))

	return s.String()
}

// DescribeEvent renders a one-line summary of an event.
func DescribeEvent(e desk.Event) string {
	switch {
	case e.Order != nil:
		return fmt.Sprintf("%s %s %s %g", e.Type, e.InstrumentKey, e.Order.Side, e.Order.Quantity)
	case e.Refresh != nil:
		return fmt.Sprintf("%s %d instruments, %d failed", e.Type, e.Refresh.Instruments, len(e.Refresh.Failed))
	case e.InstrumentKey != "":
		return fmt.Sprintf("%s %s", e.Type, e.InstrumentKey)
	default:
		return string(e.Type)
	}
}

// NewInstrumentTable creates the instrument table of the watch screen.
func NewInstrumentTable() table.Model {
	columns := []table.Column{
		{Title: "", Width: 1},
		{Title: "Symbol", Width: 10},
		{Title: "Name", Width: 18},
		{Title: "Price", Width: 16},
		{Title: "Change", Width: 12},
		{Title: "MA", Width: 12},
		{Title: "RSI", Width: 7},
		{Title: "Qty", Width: 10},
		{Title: "Open", Width: 5},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)

	t.SetStyles(s)

	return t
}

// UpdateInstrumentRows fills the table in desk order. Table cells are plain text
// so the change column carries no colour.
func UpdateInstrumentRows(t table.Model, views []desk.InstrumentView, prevPrices map[string]optional.Option[float64]) table.Model {
	rows := make([]table.Row, 0, len(views))

	for _, v := range views {
		marker := ""
		if v.Active {
			marker = "*"
		}

		change := missing
		if c, err := v.Change.Take(); err == nil {
			change = fmt.Sprintf("%+.2f%%", c)
		}

		rows = append(rows, table.Row{
			marker,
			v.Instrument.Symbol,
			v.Instrument.Name,
			FormatPriceWithColor(v.Price, prevPrices[v.Instrument.Key]),
			change,
			FormatOptional(v.LastMA, 4),
			FormatOptional(v.LastRSI, 2),
			fmt.Sprintf("%g", v.Instrument.Position.Quantity),
			fmt.Sprintf("%d", len(v.Instrument.OpenOrders())),
		})
	}

	t.SetRows(rows)

	return t
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run the refresh schedule with a live instrument screen",
		Action: withApp(func(ctx context.Context, _ *cli.Command, a *app) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			sched, err := a.newScheduler()
			if err != nil {
				return err
			}

			p := tea.NewProgram(NewWatchModel(ctx, a.desk), tea.WithAltScreen(), tea.WithContext(ctx))

			unsubscribe := a.desk.Subscribe(func(e desk.Event) {
				p.Send(DeskEventMsg{Event: e})
			})
			defer unsubscribe()

			done := make(chan error, 1)
			go func() {
				done <- sched.Run(ctx)
			}()

			_, runErr := p.Run()

			cancel()
			<-done

			if runErr != nil && ctx.Err() == nil {
				return runErr
			}

			return nil
		}),
	}
}
