package main

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/rodrgost/cronicas-carmesim/pkg/chat"
	"github.com/rodrgost/cronicas-carmesim/pkg/vtm"
)

const placeholderText = "What do you do?"

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(3)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("160")). // blood red
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	dialogueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")). // amber
			Italic(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	outcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("107"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// entry is one rendered line group in the chat log.
type entry struct {
	role    string // "user", "narrator", "dialogue", "system", "error"
	content string
}

// ConsoleUI is the BubbleTea model that runs the console client.
type ConsoleUI struct {
	cfg       *ConsoleConfig
	api       *apiClient
	character *vtm.Character
	chronicle *vtm.Chronicle

	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	entries      []entry
	outcomes     []string
	ready        bool
	loading      bool
	width        int
	height       int
	status       string
}

type turnDoneMsg struct {
	result *chat.TurnResponse
	reply  *commandReply
	err    error
}

type chronicleRefreshMsg struct {
	chronicle *vtm.Chronicle
	character *vtm.Character
	err       error
}

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient, character *vtm.Character, chronicle *vtm.Chronicle) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = placeholderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true
	metaVp := viewport.New(24, 20)

	ui := ConsoleUI{
		cfg:          cfg,
		api:          api,
		character:    character,
		chronicle:    chronicle,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
	}
	ui.loadHistory()
	return ui
}

// loadHistory seeds the chat log from the chronicle's stored history.
func (m *ConsoleUI) loadHistory() {
	for _, h := range m.chronicle.ChatHistory {
		switch h.Role {
		case chat.ChatRoleUser:
			m.entries = append(m.entries, entry{role: "user", content: h.Content})
		default:
			m.entries = append(m.entries, entry{role: "narrator", content: h.Content})
		}
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.72) - 4
		metaWidth := m.width - chatWidth - 8

		m.chatViewport.Width = chatWidth
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 2)

		m.ready = true
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlY:
			// Copy the latest narration for sharing.
			for i := len(m.entries) - 1; i >= 0; i-- {
				if m.entries[i].role == "narrator" {
					if err := clipboard.WriteAll(m.entries[i].content); err == nil {
						m.status = "narration copied"
					}
					break
				}
			}
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.entries = append(m.entries, entry{role: "user", content: input})
			m.loading = true
			m.status = ""
			m.writeChatContent()
			return m, m.sendTurn(input)
		}

	case turnDoneMsg:
		m.loading = false
		switch {
		case msg.err != nil:
			m.entries = append(m.entries, entry{role: "error", content: msg.err.Error()})
		case msg.reply != nil:
			m.entries = append(m.entries, entry{role: "system", content: msg.reply.Message})
		case msg.result != nil:
			if msg.result.Narration != "" {
				m.entries = append(m.entries, entry{role: "narrator", content: msg.result.Narration})
			}
			if msg.result.NPCDialogue != "" {
				m.entries = append(m.entries, entry{role: "dialogue", content: msg.result.NPCDialogue})
			}
			m.outcomes = msg.result.Outcomes
		}
		m.writeChatContent()
		return m, m.refreshChronicle()

	case chronicleRefreshMsg:
		if msg.err == nil {
			if msg.chronicle != nil {
				m.chronicle = msg.chronicle
			}
			if msg.character != nil {
				m.character = msg.character
			}
		}
		m.metaViewport.SetContent(m.writeMetadata())
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m ConsoleUI) sendTurn(action string) tea.Cmd {
	return func() tea.Msg {
		queued, reply, err := m.api.submitTurn(m.chronicle.ID, action)
		if err != nil {
			return turnDoneMsg{err: err}
		}
		if reply != nil {
			return turnDoneMsg{reply: reply}
		}
		result, err := m.api.awaitTurn(m.chronicle.ID, queued.TurnID)
		if err != nil {
			return turnDoneMsg{err: err}
		}
		return turnDoneMsg{result: result}
	}
}

func (m ConsoleUI) refreshChronicle() tea.Cmd {
	return func() tea.Msg {
		chr, err := m.api.getChronicle(m.chronicle.ID)
		if err != nil {
			return chronicleRefreshMsg{err: err}
		}
		c, err := m.api.getCharacter(m.character.ID)
		return chronicleRefreshMsg{chronicle: chr, character: c, err: err}
	}
}

func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 4
	if chatWidth < 20 {
		chatWidth = 20
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("CRONICAS CARMESIM") + "\n\n")
	b.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, e := range m.entries {
		switch e.role {
		case "user":
			b.WriteString(userStyle.Render("You: ") + wordwrap.String(e.content, chatWidth-5) + "\n\n")
		case "narrator":
			b.WriteString(narratorStyle.Render(wordwrap.String(e.content, chatWidth)) + "\n\n")
		case "dialogue":
			b.WriteString(dialogueStyle.Render(wordwrap.String(e.content, chatWidth)) + "\n\n")
		case "system":
			b.WriteString(separatorStyle.Render(wordwrap.String(e.content, chatWidth)) + "\n\n")
		case "error":
			b.WriteString(errorStyle.Render(wordwrap.String(e.content, chatWidth)) + "\n\n")
		}
	}

	if len(m.outcomes) > 0 && !m.loading {
		for i, o := range m.outcomes {
			b.WriteString(outcomeStyle.Render(fmt.Sprintf("  %d. %s", i+1, o)) + "\n")
		}
		b.WriteString("\n")
	}

	if m.loading {
		b.WriteString(loadingStyle.Render("The narrator considers...") + "\n")
	}

	m.chatViewport.SetContent(b.String())
	m.chatViewport.GotoBottom()
}

func (m *ConsoleUI) writeMetadata() string {
	c := m.character
	chr := m.chronicle

	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(c.Name)) + "\n")
	b.WriteString(fmt.Sprintf("%s, %dth gen\n\n", c.Clan, c.Generation))

	b.WriteString(fmt.Sprintf("Health    %d/%d\n", c.Health, c.MaxHealth))
	b.WriteString(fmt.Sprintf("Willpower %d/%d\n", c.Willpower, c.MaxWillpower))
	b.WriteString(fmt.Sprintf("Hunger    %d/5\n", c.Hunger))
	b.WriteString(fmt.Sprintf("Humanity  %d/10\n\n", c.Humanity))

	b.WriteString(fmt.Sprintf("Night %d\n", chr.CurrentDay))
	b.WriteString(fmt.Sprintf("Mode: %s\n\n", chr.ConversationMode))

	ws := chr.WorldState
	b.WriteString("World:\n")
	b.WriteString(fmt.Sprintf("• Masquerade %d\n", ws.MasqueradeThreat))
	b.WriteString(fmt.Sprintf("• Tension    %d\n", ws.SectTension))
	b.WriteString(fmt.Sprintf("• Occult     %d\n", ws.SupernaturalActivity))
	b.WriteString(fmt.Sprintf("• SI Heat    %d\n\n", ws.SecondInquisitionHeat))

	if chr.PendingChallenge != nil {
		b.WriteString(errorStyle.Render("Challenge pending!") + "\n")
		b.WriteString(fmt.Sprintf("%s + %s vs %d\n\n",
			chr.PendingChallenge.Attribute,
			chr.PendingChallenge.Skill,
			chr.PendingChallenge.Difficulty))
	}

	b.WriteString("Keys:\n")
	b.WriteString("• Enter: send\n")
	b.WriteString("• Ctrl+Y: copy\n")
	b.WriteString("• Ctrl+C: quit\n")

	if m.status != "" {
		b.WriteString("\n" + loadingStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Loading..."
	}

	chatPanel := chatPanelStyle.Render(m.chatViewport.View() + "\n" + m.textarea.View())
	metaPanel := metaPanelStyle.Render(m.metaViewport.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
