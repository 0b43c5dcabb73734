package tui

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/evanschultz/lapse/internal/app"
	"github.com/evanschultz/lapse/internal/domain"
	"github.com/evanschultz/lapse/internal/surface"
)

// Store is the activity store surface the board drives.
type Store interface {
	surface.Store
	Add(context.Context, string, string) (string, error)
	Rename(context.Context, string, string) error
	Delete(context.Context, string) error
	SetImage(context.Context, string, domain.Image) error
	MarkImageFailed(context.Context, string) error
}

// inputMode represents a selectable mode.
type inputMode int

const (
	modeNone inputMode = iota
	modeAdd
	modeRename
	modeImage
	modeConfirmDelete
	modeDetail
)

// chrome rows: tab bar above the board; status and bordered help line below.
const (
	boardTopRow   = 1
	footerRows    = 3
	nudgeColumns  = 1.0
	nudgeRowUnits = 2.0
)

// nowTickMsg refreshes the "now" used for elapsed labels.
type nowTickMsg time.Time

// pulseExpiredMsg fires when a reset highlight should end.
type pulseExpiredMsg struct{}

// clipboardMsg carries pasted clipboard text for an image change.
type clipboardMsg struct {
	activityID string
	text       string
	err        error
}

// Model is the bubble board.
type Model struct {
	ctx   context.Context
	store Store
	surf  *surface.Surface

	categories    []Category
	selectedTab   int
	selectedID    string
	surfaceCfg    surface.Config
	refreshEvery  time.Duration
	fallbackImage string
	clock         app.Clock
	logger        app.Logger
	readClipboard func() (string, error)
	readFile      func(string) ([]byte, error)

	width, height int
	ready         bool
	now           time.Time

	// activePointer is the button driving a drag; releases often arrive
	// without a button, so they are attributed to it.
	activePointer surface.PointerID
	pointerDown   bool

	mode     inputMode
	input    textinput.Model
	targetID string
	detail   detailCard
	cards    *detailView

	status string
	help   help.Model
	keys   keyMap
}

// NewModel constructs the board over store and mounts its surface. Call Close
// when the program exits.
func NewModel(store Store, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	in := textinput.New()
	in.CharLimit = 4096
	m := Model{
		ctx:           context.Background(),
		store:         store,
		categories:    DefaultCategories(),
		refreshEvery:  time.Minute,
		fallbackImage: "◍",
		clock:         time.Now,
		logger:        nopLogger{},
		readClipboard: defaultClipboard,
		readFile:      os.ReadFile,
		input:         in,
		cards:         &detailView{},
		status:        "ready",
		help:          h,
		keys:          newKeyMap(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if m.surfaceCfg.Logger == nil {
		m.surfaceCfg.Logger = m.logger
	}
	m.surf = surface.New(m.ctx, store, m.surfaceCfg)
	m.now = m.clock()
	return m
}

// Close unmounts the surface.
func (m Model) Close() {
	if m.surf != nil {
		m.surf.Close()
	}
}

// Init starts the elapsed-label refresh.
func (m Model) Init() tea.Cmd {
	return m.refreshTick()
}

func (m Model) refreshTick() tea.Cmd {
	return tea.Tick(m.refreshEvery, func(t time.Time) tea.Msg {
		return nowTickMsg(t)
	})
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		m.resizeSurface()
		return m, nil

	case nowTickMsg:
		m.now = time.Time(msg)
		return m, m.refreshTick()

	case pulseExpiredMsg:
		if m.surf.ExpirePulses(m.clock()) {
			return m, m.pulseTick()
		}
		return m, nil

	case clipboardMsg:
		if msg.err != nil {
			m.status = "clipboard: " + msg.err.Error()
			return m, nil
		}
		return m, m.applyImageInput(msg.activityID, msg.text)

	case tea.BlurMsg:
		return m, m.cancelGesture()

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)
	}

	if m.mode != modeNone && m.mode != modeConfirmDelete && m.mode != modeDetail {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// boardRows returns the number of terminal rows available to bubbles.
func (m Model) boardRows() int {
	return max(0, m.height-boardTopRow-footerRows)
}

// resizeSurface reports the board size in surface units. Repositioning
// finishes before this returns.
func (m *Model) resizeSurface() {
	m.surf.Resize(domain.Bounds{
		Width:  float64(max(0, m.width)),
		Height: float64(m.boardRows() * 2),
	})
}

// currentCategory returns the active tab id.
func (m Model) currentCategory() string {
	if len(m.categories) == 0 {
		return ""
	}
	return m.categories[clamp(m.selectedTab, 0, len(m.categories)-1)].ID
}

// currentActivities lists the active tab's bubbles in draw order.
func (m Model) currentActivities() []domain.Activity {
	return m.store.ListByCategory(m.currentCategory())
}

// selected returns the selected activity if it is on the active tab.
func (m Model) selected() (domain.Activity, bool) {
	if m.selectedID == "" {
		return domain.Activity{}, false
	}
	a, ok := m.store.Get(m.selectedID)
	if !ok || a.Category != m.currentCategory() {
		return domain.Activity{}, false
	}
	return a, true
}

// ensureSelection keeps the selection on an existing bubble of the active tab.
func (m *Model) ensureSelection() {
	if _, ok := m.selected(); ok {
		return
	}
	list := m.currentActivities()
	if len(list) == 0 {
		m.selectedID = ""
		return
	}
	m.selectedID = list[len(list)-1].ID
}

// switchTab activates tab idx, cancelling any gesture in progress.
func (m *Model) switchTab(idx int) tea.Cmd {
	if len(m.categories) == 0 {
		return nil
	}
	cmd := m.cancelGesture()
	m.selectedTab = (idx%len(m.categories) + len(m.categories)) % len(m.categories)
	m.selectedID = ""
	m.ensureSelection()
	m.status = m.categories[m.selectedTab].Name
	return cmd
}

// cycleSelection moves the selection through the active tab.
func (m *Model) cycleSelection(delta int) {
	list := m.currentActivities()
	if len(list) == 0 {
		m.selectedID = ""
		return
	}
	idx := slices.IndexFunc(list, func(a domain.Activity) bool { return a.ID == m.selectedID })
	if idx < 0 {
		idx = 0
	} else {
		idx = (idx + delta + len(list)) % len(list)
	}
	m.selectedID = list[idx].ID
}

// handleNormalModeKey handles keys while no form is open.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		if key.Matches(msg, m.keys.toggleHelp) || msg.Code == tea.KeyEscape {
			m.help.ShowAll = false
			return m, nil
		}
		if !key.Matches(msg, m.keys.quit) {
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil
	case key.Matches(msg, m.keys.nextTab):
		return m, m.switchTab(m.selectedTab + 1)
	case key.Matches(msg, m.keys.prevTab):
		return m, m.switchTab(m.selectedTab - 1)
	case msg.Text != "" && len(msg.Text) == 1 && msg.Text[0] >= '1' && msg.Text[0] <= '9':
		idx, _ := strconv.Atoi(msg.Text)
		if idx-1 < len(m.categories) {
			return m, m.switchTab(idx - 1)
		}
		return m, nil
	case key.Matches(msg, m.keys.nextBubble):
		m.cycleSelection(1)
		return m, nil
	case key.Matches(msg, m.keys.prevBubble):
		m.cycleSelection(-1)
		return m, nil
	case key.Matches(msg, m.keys.add):
		return m, m.openInput(modeAdd, "", "title: ", "what do you want to keep up with?", "")
	}

	a, ok := m.selected()
	if !ok {
		if key.Matches(msg, m.keys.reset, m.keys.rename, m.keys.remove, m.keys.setImage,
			m.keys.pasteImage, m.keys.clearImage, m.keys.details) {
			m.status = "no bubble selected"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.nudgeLeft):
		return m, m.nudge(a.ID, domain.Point{X: -nudgeColumns})
	case key.Matches(msg, m.keys.nudgeRight):
		return m, m.nudge(a.ID, domain.Point{X: nudgeColumns})
	case key.Matches(msg, m.keys.nudgeUp):
		return m, m.nudge(a.ID, domain.Point{Y: -nudgeRowUnits})
	case key.Matches(msg, m.keys.nudgeDown):
		return m, m.nudge(a.ID, domain.Point{Y: nudgeRowUnits})
	case key.Matches(msg, m.keys.reset):
		if err := m.surf.Tap(m.ctx, a.ID); err != nil {
			m.reportError("reset", err)
			return m, nil
		}
		m.status = "reset " + a.Title
		return m, m.observePulses()
	case key.Matches(msg, m.keys.rename):
		return m, m.openInput(modeRename, a.ID, "title: ", "", a.Title)
	case key.Matches(msg, m.keys.remove):
		m.mode = modeConfirmDelete
		m.targetID = a.ID
		m.status = fmt.Sprintf("delete %q? y/n", a.Title)
		return m, nil
	case key.Matches(msg, m.keys.setImage):
		return m, m.openInput(modeImage, a.ID, "image: ", "url, data uri, or file path (blank clears)", a.Image.URL())
	case key.Matches(msg, m.keys.pasteImage):
		id, read := a.ID, m.readClipboard
		m.status = "reading clipboard..."
		return m, func() tea.Msg {
			text, err := read()
			return clipboardMsg{activityID: id, text: text, err: err}
		}
	case key.Matches(msg, m.keys.clearImage):
		if err := m.store.SetImage(m.ctx, a.ID, domain.NoImage()); err != nil {
			m.reportError("clear image", err)
			return m, nil
		}
		m.status = "image cleared"
		return m, nil
	case key.Matches(msg, m.keys.details):
		m.openDetail(a)
		return m, nil
	}
	return m, nil
}

// openInput focuses the shared text input for a form.
func (m *Model) openInput(mode inputMode, targetID, prompt, placeholder, value string) tea.Cmd {
	m.mode = mode
	m.targetID = targetID
	m.input.Prompt = prompt
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closeInput() {
	m.mode = modeNone
	m.targetID = ""
	m.detail = detailCard{}
	m.input.Blur()
	m.input.SetValue("")
}

// handleInputModeKey handles keys while a form, confirm or overlay is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeDetail:
		if msg.Code == tea.KeyEscape || msg.Code == tea.KeyEnter || key.Matches(msg, m.keys.details, m.keys.quit) {
			m.closeInput()
		}
		return m, nil
	case modeConfirmDelete:
		switch {
		case msg.String() == "y" || msg.Code == tea.KeyEnter:
			id := m.targetID
			m.closeInput()
			if err := m.store.Delete(m.ctx, id); err != nil {
				m.reportError("delete", err)
				return m, nil
			}
			m.status = "deleted"
			m.ensureSelection()
		case msg.String() == "n" || msg.Code == tea.KeyEscape:
			m.closeInput()
			m.status = "delete cancelled"
		}
		return m, nil
	}

	switch msg.Code {
	case tea.KeyEscape:
		m.closeInput()
		m.status = "cancelled"
		return m, nil
	case tea.KeyEnter:
		return m.submitInput()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitInput applies the open form.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := m.input.Value()
	mode, target := m.mode, m.targetID
	m.closeInput()
	switch mode {
	case modeAdd:
		id, err := m.store.Add(m.ctx, m.currentCategory(), value)
		if err != nil {
			m.reportError("add", err)
		}
		if id == "" {
			if err == nil {
				m.status = "title is required"
			}
			return m, nil
		}
		m.selectedID = id
		m.surf.ObservePulses(m.clock())
		m.status = "added " + strings.TrimSpace(value)
	case modeRename:
		if strings.TrimSpace(value) == "" {
			m.status = "title is required"
			return m, nil
		}
		if err := m.store.Rename(m.ctx, target, value); err != nil {
			m.reportError("rename", err)
			return m, nil
		}
		m.status = "renamed"
	case modeImage:
		return m, m.applyImageInput(target, value)
	}
	return m, nil
}

// applyImageInput resolves and stores an image for id.
func (m *Model) applyImageInput(id, raw string) tea.Cmd {
	img, err := resolveImageInput(raw, m.readFile)
	if err != nil {
		m.status = "image: " + err.Error()
		return nil
	}
	if err := m.store.SetImage(m.ctx, id, img); err != nil {
		m.reportError("set image", err)
		return nil
	}
	if img.IsAbsent() {
		m.status = "image cleared"
	} else {
		m.status = "image set"
	}
	return nil
}

// openDetail renders the detail overlay. Decoding an embedded image here is
// the load attempt; a failure is recorded so the bubble shows the fallback.
func (m *Model) openDetail(a domain.Activity) {
	info, err := imageInfo(a.Image)
	switch {
	case err != nil:
		if markErr := m.store.MarkImageFailed(m.ctx, a.ID); markErr != nil {
			m.reportError("mark image failed", markErr)
		}
		a.ImageFailed = true
		info = "failed to load (" + err.Error() + ")"
	case a.ImageFailed:
		info += " (failed to load)"
	}
	m.mode = modeDetail
	m.targetID = a.ID
	m.detail = detailCard{activity: a, category: m.categoryName(a.Category), image: info, now: m.now}
}

func (m Model) categoryName(id string) string {
	for _, c := range m.categories {
		if c.ID == id {
			return c.Name
		}
	}
	return id
}

// nudge moves id by delta within bounds.
func (m *Model) nudge(id string, delta domain.Point) tea.Cmd {
	if err := m.surf.Nudge(m.ctx, id, delta); err != nil {
		m.reportError("move", err)
	}
	return nil
}

// observePulses arms reset highlights and schedules their expiry.
func (m *Model) observePulses() tea.Cmd {
	if len(m.surf.ObservePulses(m.clock())) == 0 {
		return nil
	}
	return m.pulseTick()
}

func (m Model) pulseTick() tea.Cmd {
	return tea.Tick(m.surf.PulseDuration(), func(time.Time) tea.Msg {
		return pulseExpiredMsg{}
	})
}

// reportError logs a failed store operation and surfaces it in the status.
func (m *Model) reportError(op string, err error) {
	m.logger.Warn("board operation failed", "op", op, "err", err)
	m.status = op + " failed: " + err.Error()
}

// pointAt converts a cell to surface units. Rows map to their middle half-row.
func pointAt(x, y int) domain.Point {
	return domain.Point{X: float64(x), Y: float64((y-boardTopRow)*2 + 1)}
}

// onBoard reports whether a cell lies inside the bubble area.
func (m Model) onBoard(y int) bool {
	return y >= boardTopRow && y < boardTopRow+m.boardRows()
}

// handleMouseClick starts a gesture on a bubble or switches tabs.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	// One gesture at a time: a second button cannot start another.
	if m.mode != modeNone || m.help.ShowAll || m.pointerDown {
		return m, nil
	}
	if msg.Y < boardTopRow {
		if idx, ok := m.tabAt(msg.X); ok {
			return m, m.switchTab(idx)
		}
		return m, nil
	}
	if !m.onBoard(msg.Y) || msg.Button == tea.MouseNone {
		return m, nil
	}
	at := pointAt(msg.X, msg.Y)
	id, ok := m.surf.HitTest(m.currentCategory(), at)
	if !ok {
		return m, nil
	}
	m.selectedID = id
	pointer := surface.PointerID(msg.Button)
	if m.surf.PointerDown(id, pointer, at) {
		m.activePointer = pointer
		m.pointerDown = true
	}
	return m, nil
}

// handleMouseMotion forwards drags to the active gesture.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if !m.pointerDown {
		return m, nil
	}
	pointer := surface.PointerID(msg.Button)
	if msg.Button == tea.MouseNone {
		pointer = m.activePointer
	}
	if err := m.surf.PointerMove(m.ctx, pointer, pointAt(msg.X, msg.Y)); err != nil {
		m.reportError("move", err)
	}
	return m, nil
}

// handleMouseRelease ends the active gesture: a drag leaves the bubble where
// it is, a tap resets its timer.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	if !m.pointerDown {
		return m, nil
	}
	pointer := surface.PointerID(msg.Button)
	if msg.Button == tea.MouseNone {
		pointer = m.activePointer
	}
	if pointer != m.activePointer {
		return m, nil
	}
	m.pointerDown = false
	id, outcome, err := m.surf.PointerUp(m.ctx, pointer)
	if err != nil {
		m.reportError("reset", err)
		return m, nil
	}
	switch outcome {
	case surface.OutcomeTappedReset:
		if a, ok := m.store.Get(id); ok {
			m.status = "reset " + a.Title
		}
		return m, m.observePulses()
	case surface.OutcomeDragged:
		m.status = "moved"
	}
	return m, nil
}

// cancelGesture aborts any gesture in progress.
func (m *Model) cancelGesture() tea.Cmd {
	if !m.pointerDown {
		return nil
	}
	m.pointerDown = false
	_, outcome, err := m.surf.PointerCancel(m.ctx, m.activePointer)
	if err != nil {
		m.reportError("reset", err)
		return nil
	}
	if outcome == surface.OutcomeTappedReset {
		return m.observePulses()
	}
	return nil
}

// handleMouseWheel cycles the selection.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || m.help.ShowAll || m.pointerDown {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseWheelUp:
		m.cycleSelection(-1)
	case tea.MouseWheelDown:
		m.cycleSelection(1)
	}
	return m, nil
}

// tabLabels renders each tab label with its activity count.
func (m Model) tabLabels() []string {
	labels := make([]string, 0, len(m.categories))
	for i, c := range m.categories {
		count := len(m.store.ListByCategory(c.ID))
		labels = append(labels, fmt.Sprintf(" %d %s (%d) ", i+1, c.Name, count))
	}
	return labels
}

// tabAt maps a tab-bar column to a tab index.
func (m Model) tabAt(x int) (int, bool) {
	start := 0
	for i, label := range m.tabLabels() {
		end := start + lipgloss.Width(label)
		if x >= start && x < end {
			return i, true
		}
		start = end + 1
	}
	return 0, false
}

// View renders the board.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// render composes the screen as one string.
func (m Model) render() string {
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")

	activeTab := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(accent)
	idleTab := lipgloss.NewStyle().Foreground(muted)
	tabs := make([]string, 0, len(m.categories))
	for i, label := range m.tabLabels() {
		if i == m.selectedTab {
			tabs = append(tabs, activeTab.Render(label))
		} else {
			tabs = append(tabs, idleTab.Render(label))
		}
	}
	tabBar := lipgloss.NewStyle().MaxWidth(max(1, m.width)).Render(strings.Join(tabs, " "))

	canvas := newBoardCanvas(m.width, m.boardRows())
	dragging, isDragging := m.surf.Tracking()
	now := m.clock()
	for _, a := range m.currentActivities() {
		canvas.paint(bubbleView{
			activity: a,
			elapsed:  domain.ElapsedLabel(a.ElapsedSince(), m.now),
			image:    m.imageMarker(a),
			selected: a.ID == m.selectedID,
			dragging: isDragging && a.ID == dragging,
			pulsing:  m.surf.Pulsing(a.ID, now),
		})
	}
	palette := map[cellStyle]lipgloss.Style{
		styleBorder:   lipgloss.NewStyle().Foreground(muted),
		styleSelected: lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true),
		styleDragging: lipgloss.NewStyle().Foreground(accent).Bold(true),
		stylePulse:    lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("229")).Bold(true),
		styleTitle:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true),
		styleMuted:    lipgloss.NewStyle().Foreground(muted),
	}
	board := canvas.render(palette)
	if len(m.currentActivities()) == 0 && m.boardRows() > 0 {
		empty := lipgloss.NewStyle().Foreground(muted).Render("Nothing here yet. Press n to add an activity.")
		board = lipgloss.Place(max(1, m.width), m.boardRows(), lipgloss.Center, lipgloss.Center, empty)
	}

	statusLine := lipgloss.NewStyle().Foreground(dim).MaxWidth(max(1, m.width)).Render(m.statusText())
	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	content := strings.Join([]string{tabBar, board, statusLine, helpLine}, "\n")
	if overlay := m.renderOverlay(accent, muted); overlay != "" {
		content = overlayOnContent(content, overlay, max(1, m.width), max(1, m.height))
	}
	return content
}

// statusText returns the status line, prefixed by the open form.
func (m Model) statusText() string {
	switch m.mode {
	case modeAdd, modeRename, modeImage:
		return m.input.View()
	}
	return m.status
}

// imageMarker describes a bubble's image in one short line.
func (m Model) imageMarker(a domain.Activity) string {
	if a.ImageFailed || a.Image.IsAbsent() {
		return m.fallbackImage
	}
	switch a.Image.Kind() {
	case domain.ImageEmbedded:
		sub := strings.TrimPrefix(a.Image.MediaType(), "image/")
		return "▣ " + sub
	case domain.ImageRemote:
		return "↗ " + hostOf(a.Image.URL())
	}
	return m.fallbackImage
}

// renderOverlay returns the modal content for the current mode, if any.
func (m Model) renderOverlay(accent, muted color.Color) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1)
	switch {
	case m.help.ShowAll:
		full := m.help
		full.ShowAll = true
		full.SetWidth(max(20, m.width-10))
		title := lipgloss.NewStyle().Bold(true).Render("lapse keys")
		return box.Render(title + "\n\n" + full.View(m.keys))
	case m.mode == modeDetail:
		width := max(24, min(72, m.width-8))
		body := m.cards.render(m.detail, width)
		hint := lipgloss.NewStyle().Foreground(muted).Render("esc close")
		return box.Render(body + "\n\n" + hint)
	case m.mode == modeConfirmDelete:
		a, _ := m.store.Get(m.targetID)
		return box.Render(fmt.Sprintf("Delete %q?\n\ny confirm • n cancel", a.Title))
	}
	return ""
}

// hostOf returns the host part of a URL for compact display.
func hostOf(raw string) string {
	rest := raw
	if _, after, ok := strings.Cut(raw, "://"); ok {
		rest = after
	}
	host, _, _ := strings.Cut(rest, "/")
	if host == "" {
		return raw
	}
	return host
}

// fitLines pads or trims content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		lines = lines[:maxLines]
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay over base.
func overlayOnContent(base, overlay string, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	overlayLayer := lipgloss.NewLayer(centered).X(0).Y(0).Z(10)
	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// nopLogger discards diagnostics.
type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Warn(any, ...any)  {}
