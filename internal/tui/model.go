package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/diogo/shopchat/internal/api"
	"github.com/diogo/shopchat/internal/cart"
	"github.com/diogo/shopchat/internal/chat"
	"github.com/diogo/shopchat/internal/models"
	"github.com/diogo/shopchat/internal/render"
)

// Animation tick message
type animationTickMsg time.Time

// Message types for the TUI
type (
	// engineChangedMsg is sent whenever the controller or cart notified a
	// visible state change. The view re-reads both on receipt.
	engineChangedMsg struct{}

	// sessionReadyMsg is sent when the startup session is current and its
	// history is loaded.
	sessionReadyMsg struct {
		sessionID string
	}

	// sessionsLoadedMsg is sent when the directory listing for the session
	// selector arrives.
	sessionsLoadedMsg struct {
		sessions []models.Session
		err      error
	}

	// sessionDeletedMsg is sent after a delete from the selector finished.
	sessionDeletedMsg struct {
		sessionID string
		err       error
	}

	errMsg struct {
		err error
	}
)

// Model represents the chat TUI state
type Model struct {
	client     api.StoreClientInterface
	controller *chat.Controller
	cartStore  *cart.Store

	// changes coalesces engine notifications into bubbletea messages
	changes chan struct{}

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	ready          bool
	err            error
	animationFrame int

	// Session selector state
	selectingSession bool
	sessionsList     []models.Session
	sessionsCursor   int
	sessionsLoading  bool

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model. The controller and cart are
// wired so every engine-side change lands in the changes channel.
func NewChatModel(client api.StoreClientInterface) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask for products, sizes, or say 'add it to my cart'..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	// The alternate screen owns the terminal, so the engine logs nowhere
	cartStore := cart.NewStore(zerolog.Nop())
	cartStore.Subscribe(notify)

	controller := chat.NewController(client, cartStore, chat.WithOnChange(notify))

	return Model{
		client:     client,
		controller: controller,
		cartStore:  cartStore,
		changes:    changes,
		textarea:   ta,
		spinner:    s,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.waitForChange(),
	)
}

// waitForChange blocks on the engine notification channel and converts the
// next notification into a bubbletea message. Re-armed on every receipt.
func (m Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return engineChangedMsg{}
	}
}

// openSession makes sessionID current, creating a fresh session first when
// none was given.
func (m Model) openSession(sessionID string) tea.Cmd {
	return func() tea.Msg {
		if sessionID == "" {
			created, err := m.client.CreateSession(m.client.UserID())
			if err != nil {
				return errMsg{err: err}
			}
			sessionID = created
		}
		m.controller.LoadHistory(sessionID)
		return sessionReadyMsg{sessionID: sessionID}
	}
}

// animationTick returns a command that sends animation tick messages
func animationTick() tea.Cmd {
	return tea.Tick(time.Millisecond*80, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.selectingSession {
		return m.updateSessionSelection(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 1
		padding := 2

		vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
		if m.cartStore.IsOpen() {
			vpHeight -= m.cartPanelHeight()
		}
		if vpHeight < 5 {
			vpHeight = 5
		}

		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.textarea.SetWidth(contentWidth - 4)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
			m.textarea.SetWidth(contentWidth - 4)
		}
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.controller.Close()
			return m, tea.Quit

		case "esc":
			if m.controller.IsLoading() {
				m.controller.CancelStream()
			} else if m.cartStore.IsOpen() {
				m.cartStore.Close()
				m.resizeViewport()
			} else {
				m.controller.Close()
				return m, tea.Quit
			}

		case "ctrl+t":
			if m.cartStore.IsOpen() {
				m.cartStore.Close()
			} else {
				m.cartStore.Open()
			}
			m.resizeViewport()

		case "ctrl+l":
			m.selectingSession = true
			m.sessionsLoading = true
			m.sessionsCursor = 0
			return m, m.loadSessions()

		case "ctrl+n":
			m.err = nil
			return m, m.openSession("")

		case "enter":
			if !m.controller.IsLoading() && strings.TrimSpace(m.textarea.Value()) != "" {
				input := strings.TrimSpace(m.textarea.Value())
				if input == "exit" || input == "quit" || input == "/exit" || input == "/quit" {
					m.controller.Close()
					return m, tea.Quit
				}

				if input == "/sessions" {
					m.textarea.Reset()
					m.selectingSession = true
					m.sessionsLoading = true
					m.sessionsCursor = 0
					return m, m.loadSessions()
				}

				if input == "/cart" {
					m.textarea.Reset()
					if m.cartStore.IsOpen() {
						m.cartStore.Close()
					} else {
						m.cartStore.Open()
					}
					m.resizeViewport()
					return m, nil
				}

				if input == "/clear" {
					m.textarea.Reset()
					m.controller.ClearHistory()
					return m, nil
				}

				m.err = nil
				m.animationFrame = 0
				m.textarea.Reset()

				if err := m.controller.SendMessage(input); err != nil {
					m.err = err
					return m, nil
				}

				return m, tea.Batch(
					m.spinner.Tick,
					animationTick(),
				)
			}
		}

	case engineChangedMsg:
		m.updateViewport()
		if m.controller.IsLoading() {
			m.viewport.GotoBottom()
		}
		m.resizeViewport()
		cmds = append(cmds, m.waitForChange())

	case sessionReadyMsg:
		m.updateViewport()
		m.viewport.GotoBottom()

	case errMsg:
		m.err = msg.err

	case spinner.TickMsg:
		if m.controller.IsLoading() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case animationTickMsg:
		if m.controller.IsLoading() {
			m.animationFrame++
			cmds = append(cmds, animationTick())
		}
	}

	// Only pass KeyMsg to the textarea to prevent escape sequence leaks
	if !m.controller.IsLoading() {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// resizeViewport recomputes the viewport height, accounting for the cart
// panel when it is open.
func (m *Model) resizeViewport() {
	if !m.ready {
		return
	}

	headerHeight := 4
	inputHeight := 6
	statusHeight := 1
	padding := 2

	vpHeight := m.height - headerHeight - inputHeight - statusHeight - padding
	if m.cartStore.IsOpen() {
		vpHeight -= m.cartPanelHeight()
	}
	if vpHeight < 5 {
		vpHeight = 5
	}
	m.viewport.Height = vpHeight
}

// cartPanelHeight estimates the rendered height of the cart panel
func (m Model) cartPanelHeight() int {
	items := m.cartStore.Items()
	// title + items + totals rows + border
	h := 1 + len(items) + 4 + 2
	if h > m.height/2 {
		h = m.height / 2
	}
	return h
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	if m.selectingSession {
		return m.renderSessionSelector()
	}

	var sections []string
	contentWidth := m.width - 4

	// Header
	headerParts := []string{
		titleStyle.Render("✦ Shop Chat"),
	}
	if sessionID := m.controller.SessionID(); sessionID != "" {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render("session "+shortID(sessionID)),
		)
	}
	if itemCount := len(m.cartStore.Items()); itemCount > 0 {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			cartTitleStyle.Render(fmt.Sprintf("🛒 %d", itemCount)),
		)
	}
	headerContent := lipgloss.JoinHorizontal(lipgloss.Center, headerParts...)
	sections = append(sections, headerStyle.Width(contentWidth).Render(headerContent))

	// Messages area
	var messagesContent string
	if len(m.controller.Messages()) == 0 {
		messagesContent = m.renderWelcome()
	} else {
		messagesContent = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	// Cart panel
	if m.cartStore.IsOpen() {
		sections = append(sections, m.renderCartPanel(contentWidth))
	}

	// Input area
	var inputContent string
	if m.controller.IsLoading() {
		inputContent = m.renderLoadingAnimation()
	} else {
		inputContent = lipgloss.JoinVertical(
			lipgloss.Left,
			inputLabelStyle.Render("You"),
			m.textarea.View(),
		)
	}
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(inputContent))

	// Status bar
	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.err != nil {
		sections = append(sections, FormatError(m.err))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderWelcome renders the welcome screen when no messages exist
func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4
	height := m.viewport.Height

	icon := welcomeIconStyle.Width(width).Render("✦")
	title := welcomeTitleStyle.Width(width).Render("Welcome to Shop Chat")
	subtitle := welcomeStyle.Width(width).Render("Ask the shopping agent for anything in the store")

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		"",
		icon,
		"",
		title,
		"",
		subtitle,
		"",
	)

	contentHeight := lipgloss.Height(content)
	topPadding := (height - contentHeight) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + content
}

// renderCartPanel renders the mirrored cart below the conversation
func (m Model) renderCartPanel(width int) string {
	innerWidth := width - 4

	var content strings.Builder
	content.WriteString(cartTitleStyle.Render("🛒 Your Cart"))
	content.WriteString("\n")
	content.WriteString(render.CartLines(m.cartStore.Items(), innerWidth))

	summary := m.cartStore.Summary()
	if summary.Total > 0 || len(m.cartStore.Items()) > 0 {
		content.WriteString("\n")
		content.WriteString(render.CartTotals(summary, innerWidth))
	}

	return cartPanelStyle.Width(width).Render(content.String())
}

// renderLoadingAnimation renders a colorful animated loading indicator
func (m Model) renderLoadingAnimation() string {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	frame := m.animationFrame

	spinIdx := frame % len(chars)
	spinColor := gradientColors[frame%len(gradientColors)]
	spinChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 20
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + frame) % len(gradientColors)
		charIdx := (i + frame/2) % len(barChars)

		style := lipgloss.NewStyle().Foreground(gradientColors[colorIdx])
		bar.WriteString(style.Render(barChars[charIdx]))
	}

	dots := ""
	numDots := (frame / 3) % 4
	for i := 0; i < numDots; i++ {
		dotColor := gradientColors[(frame+i)%len(gradientColors)]
		dots += lipgloss.NewStyle().Foreground(dotColor).Render("●")
	}
	for i := numDots; i < 3; i++ {
		dots += lipgloss.NewStyle().Foreground(colorTextMute).Render("○")
	}

	label := " Agent is thinking "
	if m.controller.IsStreaming() {
		label = " Agent is replying "
	}
	text := lipgloss.NewStyle().Foreground(colorText).Render(label)

	return fmt.Sprintf("%s %s %s %s", spinChar, bar.String(), text, dots)
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Ctrl+T", "Cart"},
		{"Ctrl+L", "Sessions"},
		{"Ctrl+N", "New"},
		{"Esc", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		item := lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		)
		items = append(items, item)
	}

	bar := lipgloss.JoinHorizontal(lipgloss.Center, strings.Join(items, "  │  "))
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6
	streamingID := m.controller.StreamingID()

	for i, msg := range m.controller.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.Sender == models.SenderUser {
			label := userLabelStyle.Render("⬤ You")
			bubble := userBubbleStyle.Width(bubbleWidth).Render(msg.Text)
			content.WriteString(label + "\n" + bubble)
		} else {
			label := agentLabelStyle.Render("✦ Shop Agent")
			content.WriteString(label + "\n")

			text := msg.Text
			if msg.ID == streamingID {
				// Streaming placeholder gets a typing cursor; render the raw
				// chunk concatenation since partial markdown looks broken.
				if text == "" {
					text = "…"
				}
				bubble := agentBubbleStyle.Width(bubbleWidth).Render(text + "▌")
				content.WriteString(bubble)
			} else {
				rendered, err := render.MarkdownWithWidth(text, bubbleWidth-4)
				if err != nil {
					rendered = text
				}
				rendered = strings.TrimRight(rendered, "\n")
				bubble := agentBubbleStyle.Width(bubbleWidth).Render(rendered)
				content.WriteString(bubble)
			}

			if len(msg.Products) > 0 {
				content.WriteString("\n")
				content.WriteString(render.ProductCards(msg.Products, bubbleWidth))
			}
		}
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// shortID abbreviates a session id for the header
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// RunChat starts the chat TUI. An empty sessionID starts a fresh session.
func RunChat(client api.StoreClientInterface, sessionID string) error {
	render.LoadTUIThemeFromConfig()
	UpdateTheme()

	m := NewChatModel(client)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	go func() {
		// Session bootstrap runs off the UI loop; the controller's change
		// notifications pull the loaded history into the view.
		msg := m.openSession(sessionID)()
		p.Send(msg)
	}()

	_, err := p.Run()
	return err
}
