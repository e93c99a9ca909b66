package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/sagaforge/saga-engine/pkg/state"
)

const PlaceHolderText = "What do you do?"

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api           *apiClient
	gameState     *state.GameState
	storyViewport viewport.Model
	metaViewport  viewport.Model
	textarea      textarea.Model
	ready         bool
	width         int
	height        int
	err           error
	loading       bool

	// Pending character customization.
	pendingName   string
	pendingSkills []string

	// Pending level-up allocations.
	allocations map[string]int

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type gameStateMsg struct {
	gameState *state.GameState
	err       error
}

type progressTickMsg struct{}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // bright green

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")) // salmon

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(api *apiClient, gs *state.GameState) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		api:           api,
		gameState:     gs,
		textarea:      ta,
		storyViewport: storyVp,
		metaViewport:  metaVp,
		allocations:   make(map[string]int),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		storyWidth := int(float64(m.width)*0.72) - 4
		metaWidth := m.width - storyWidth - 6

		m.storyViewport.Width = storyWidth - 2
		m.storyViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(storyWidth - 4)

		m.ready = true
		m.writeStoryContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			return m.handleSubmit(input)
		}

	case gameStateMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.writeStoryContent()
			currentContent := m.storyViewport.View()
			m.storyViewport.SetContent(currentContent + errorStyle.Render("Error: "+msg.err.Error()) + "\n\n")
		} else {
			m.err = nil
			m.gameState = msg.gameState
			m.writeStoryContent()
			m.metaViewport.SetContent(m.writeMetadata())
		}
		m.storyViewport.GotoBottom()

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeStoryContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// handleSubmit routes the input by game mode. Slash commands work in
// any mode; bare text means different things in different modes.
func (m ConsoleUI) handleSubmit(input string) (tea.Model, tea.Cmd) {
	if strings.HasPrefix(input, "/") {
		return m.handleCommand(input)
	}

	gs := m.gameState
	switch gs.Status {
	case state.ModeCharacterCreation:
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.createCharacter(gs.ID, input)
		})

	case state.ModeCharacterCustomize:
		// Bare text sets the character's name; /begin starts play.
		m.pendingName = input
		m.textarea.Reset()
		m.metaViewport.SetContent(m.writeMetadata())
		return m, nil

	case state.ModePlaying:
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.sendAction(gs.ID, input)
		})

	case state.ModeCombat:
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.sendCombatAction(gs.ID, input)
		})

	case state.ModeLooting:
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.continueFromLoot(gs.ID)
		})

	case state.ModeGambling:
		// Bare text in gambling mode needs a stake: /bet N <action>.
		return m.notice("Place a wager with /bet <gold> <what you play>, or /leave the table.")

	case state.ModeTransaction:
		return m.notice("Trade with /buy <item> or /sell <item>, or /leave the vendor.")

	case state.ModeLevelUp:
		return m.notice("Spend points with /spend <skill> <points>, then /done (or /cancel).")

	case state.ModeGameOver:
		return m.notice("The story has ended. Press Ctrl+C to exit.")
	}
	return m, nil
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	gs := m.gameState

	switch cmd {
	case "/help":
		return m.notice(helpText(gs.Status))

	case "/copy":
		if err := clipboard.WriteAll(gs.ID.String()); err != nil {
			return m.notice("Could not access the clipboard: " + err.Error())
		}
		return m.notice("Game ID copied to clipboard.")

	case "/quit":
		m.showQuitModal = true
		return m, nil

	case "/skills":
		if gs.Status != state.ModeCharacterCustomize {
			return m.notice("Skills are chosen during character customization.")
		}
		raw := strings.Join(args, " ")
		m.pendingSkills = nil
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				m.pendingSkills = append(m.pendingSkills, s)
			}
		}
		m.textarea.Reset()
		m.metaViewport.SetContent(m.writeMetadata())
		return m, nil

	case "/begin":
		if gs.Status != state.ModeCharacterCustomize {
			return m.notice("/begin only works during character customization.")
		}
		name, skills := m.pendingName, m.pendingSkills
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.finalizeCharacter(gs.ID, name, skills)
		})

	case "/levelup":
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.enterLevelUp(gs.ID)
		})

	case "/spend":
		if gs.Status != state.ModeLevelUp {
			return m.notice("/spend only works during level up. Try /levelup first.")
		}
		if len(args) < 2 {
			return m.notice("Usage: /spend <skill> <points>")
		}
		points, err := strconv.Atoi(args[len(args)-1])
		if err != nil || points < 1 {
			return m.notice("Usage: /spend <skill> <points>")
		}
		skill := strings.Join(args[:len(args)-1], " ")
		m.allocations[skill] += points
		m.textarea.Reset()
		m.metaViewport.SetContent(m.writeMetadata())
		return m, nil

	case "/done":
		if gs.Status != state.ModeLevelUp {
			return m.notice("/done only works during level up.")
		}
		alloc := m.allocations
		m.allocations = make(map[string]int)
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.confirmLevelUp(gs.ID, alloc)
		})

	case "/cancel":
		if gs.Status != state.ModeLevelUp {
			return m.notice("/cancel only works during level up.")
		}
		m.allocations = make(map[string]int)
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.cancelLevelUp(gs.ID)
		})

	case "/gamble":
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.enterGambling(gs.ID)
		})

	case "/bet":
		if gs.Status != state.ModeGambling {
			return m.notice("/bet only works at the gambling table. Try /gamble first.")
		}
		if len(args) < 1 {
			return m.notice("Usage: /bet <gold> <what you play>")
		}
		stake, err := strconv.Atoi(args[0])
		if err != nil || stake < 1 {
			return m.notice("Usage: /bet <gold> <what you play>")
		}
		text := strings.Join(args[1:], " ")
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.playGamble(gs.ID, text, stake)
		})

	case "/buy":
		if len(args) == 0 {
			return m.notice("Usage: /buy <item name>")
		}
		item := strings.Join(args, " ")
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.buy(gs.ID, item)
		})

	case "/sell":
		if len(args) == 0 {
			return m.notice("Usage: /sell <item name>")
		}
		item := strings.Join(args, " ")
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.sell(gs.ID, item)
		})

	case "/leave":
		switch gs.Status {
		case state.ModeGambling:
			return m.dispatch(func() (*state.GameState, error) {
				return m.api.exitGambling(gs.ID)
			})
		case state.ModeTransaction:
			return m.dispatch(func() (*state.GameState, error) {
				return m.api.exitTransaction(gs.ID)
			})
		default:
			return m.notice("There is nothing to leave right now.")
		}

	case "/liquidate":
		if len(args) == 0 {
			return m.notice("Usage: /liquidate <item name>")
		}
		item := strings.Join(args, " ")
		return m.dispatch(func() (*state.GameState, error) {
			return m.api.liquidate(gs.ID, item)
		})

	default:
		return m.notice("Unknown command. Try /help.")
	}
}

// dispatch runs one API call as a tea command with the loading bar.
func (m ConsoleUI) dispatch(call func() (*state.GameState, error)) (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	m.loading = true
	m.progressTick = 0
	m.writeStoryContent()
	return m, tea.Batch(func() tea.Msg {
		gs, err := call()
		return gameStateMsg{gs, err}
	}, progressTick())
}

// notice appends a local hint without an API round-trip.
func (m ConsoleUI) notice(text string) (tea.Model, tea.Cmd) {
	m.textarea.Reset()
	m.writeStoryContent()
	currentContent := m.storyViewport.View()
	m.storyViewport.SetContent(currentContent + infoStyle.Render(text) + "\n\n")
	m.storyViewport.GotoBottom()
	return m, nil
}

// writeStoryContent rebuilds the story panel for the current width.
func (m *ConsoleUI) writeStoryContent() {
	storyWidth := m.storyViewport.Width - 6
	if storyWidth < 20 {
		storyWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("SAGA ENGINE") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", storyWidth-6)) + "\n\n")

	if m.gameState != nil {
		for _, seg := range m.gameState.StoryLog {
			switch seg.Kind {
			case state.SegmentInfo:
				content.WriteString(infoStyle.Render(wordwrap.String(seg.Text, storyWidth)) + "\n\n")
			default:
				content.WriteString(narratorStyle.Render(wordwrap.String(seg.Text, storyWidth)) + "\n")
				if seg.SkillCheck != nil {
					content.WriteString(renderSkillCheck(seg.SkillCheck) + "\n")
				}
				if seg.Illustration != "" {
					content.WriteString(promptStyle.Render("[illustration] "+seg.Illustration) + "\n")
				}
				content.WriteString("\n")
			}
		}

		if len(m.gameState.Actions) > 0 && !m.loading {
			content.WriteString(promptStyle.Render("Suggested:") + "\n")
			for _, a := range m.gameState.Actions {
				content.WriteString(userStyle.Render("• "+a) + "\n")
			}
			content.WriteString("\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

func renderSkillCheck(check *state.SkillCheckResult) string {
	verdict := failStyle.Render("failure")
	if check.Success {
		verdict = successStyle.Render("success")
	}
	return promptStyle.Render(fmt.Sprintf("[%s check, %+d] ", check.Skill, check.Modifier)) + verdict
}

// writeMetadata rebuilds the side panel: character sheet, mode
// sub-state, and the commands that work right now.
func (m *ConsoleUI) writeMetadata() string {
	gs := m.gameState
	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURE") + "\n\n")

	content.WriteString("Game ID:\n")
	content.WriteString(gs.ID.String()[:8] + "...\n\n")

	content.WriteString("Mode:\n")
	content.WriteString(string(gs.Status) + "\n\n")

	if c := gs.Character; c != nil {
		content.WriteString(titleStyle.Render(c.Name) + "\n")
		content.WriteString(fmt.Sprintf("HP %d/%d  Gold %d\n", c.HP, c.MaxHP, c.Gold))
		content.WriteString(fmt.Sprintf("XP %d  Skill pts %d\n\n", c.XP, c.SkillPoints))

		if len(c.Skills) > 0 {
			content.WriteString("Skills:\n")
			for name, level := range c.Skills {
				content.WriteString(fmt.Sprintf("• %s %d\n", name, level))
			}
			content.WriteString("\n")
		}
		if c.Equipment.Weapon != nil {
			content.WriteString("Weapon: " + c.Equipment.Weapon.Name + "\n")
		}
		if c.Equipment.Armor != nil {
			content.WriteString("Armor: " + c.Equipment.Armor.Name + "\n")
		}
		if len(c.Equipment.Gear) > 0 {
			content.WriteString("Gear:\n")
			for _, item := range c.Equipment.Gear {
				content.WriteString(fmt.Sprintf("• %s (%dg)\n", item.Name, item.Value))
			}
		}
		content.WriteString("\n")
	}

	for _, comp := range gs.Companions {
		content.WriteString(fmt.Sprintf("%s (bond %+d)\n", comp.Name, comp.Relationship))
	}
	if len(gs.Companions) > 0 {
		content.WriteString("\n")
	}

	switch gs.Status {
	case state.ModeCharacterCustomize:
		content.WriteString(infoStyle.Render("Customize:") + "\n")
		name := m.pendingName
		if name == "" {
			name = "(type a name)"
		}
		content.WriteString("Name: " + name + "\n")
		content.WriteString("Skills: " + strings.Join(m.pendingSkills, ", ") + "\n")
		if gs.SkillPools != nil {
			content.WriteString("\nAvailable:\n")
			for _, defs := range gs.SkillPools {
				for _, def := range defs {
					content.WriteString("• " + def.Name + "\n")
				}
			}
		}
		content.WriteString("\n")

	case state.ModeCombat:
		if gs.Combat != nil {
			content.WriteString(errorStyle.Render("COMBAT") + fmt.Sprintf(" (round %d)\n", gs.Combat.Round))
			for _, e := range gs.Combat.Enemies {
				marker := ""
				if e.Defeated() {
					marker = " ✝"
				}
				content.WriteString(fmt.Sprintf("• %s %d/%d%s\n", e.Name, e.HP, e.MaxHP, marker))
			}
			content.WriteString("\n")
		}

	case state.ModeLooting:
		if gs.Loot != nil {
			content.WriteString(infoStyle.Render("SPOILS") + "\n")
			content.WriteString(fmt.Sprintf("XP +%d, gold +%d\n", gs.Loot.XP, gs.Loot.Gold))
			for _, item := range gs.Loot.Items {
				content.WriteString("• " + item.Name + "\n")
			}
			content.WriteString("\n")
		}

	case state.ModeTransaction:
		if gs.Transaction != nil {
			content.WriteString(infoStyle.Render(gs.Transaction.VendorName) + "\n")
			for _, item := range gs.Transaction.Offers {
				content.WriteString(fmt.Sprintf("• %s (%dg)\n", item.Name, item.Value))
			}
			content.WriteString("\n")
		}

	case state.ModeLevelUp:
		content.WriteString(infoStyle.Render("LEVEL UP") + "\n")
		for skill, pts := range m.allocations {
			content.WriteString(fmt.Sprintf("• %s +%d\n", skill, pts))
		}
		content.WriteString("\n")
	}

	if gs.Weather != "" || gs.TimeOfDay != "" {
		content.WriteString(strings.TrimSpace(gs.TimeOfDay+", "+gs.Weather) + "\n\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString(commandHints(gs.Status))
	return content.String()
}

func commandHints(mode state.Mode) string {
	common := "• /help  • /copy\n• Ctrl+C: quit\n"
	switch mode {
	case state.ModeCharacterCreation:
		return "• type a character concept\n" + common
	case state.ModeCharacterCustomize:
		return "• type a name\n• /skills a, b\n• /begin\n" + common
	case state.ModePlaying:
		return "• type an action\n• /gamble  • /levelup\n• /liquidate <item>\n" + common
	case state.ModeCombat:
		return "• type a combat action\n" + common
	case state.ModeLooting:
		return "• press Enter to continue\n" + common
	case state.ModeTransaction:
		return "• /buy <item>  • /sell <item>\n• /leave\n" + common
	case state.ModeGambling:
		return "• /bet <gold> <play>\n• /leave\n" + common
	case state.ModeLevelUp:
		return "• /spend <skill> <pts>\n• /done  • /cancel\n" + common
	default:
		return common
	}
}

func helpText(mode state.Mode) string {
	return "Commands for this mode:\n" + commandHints(mode)
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", storyWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

// renderProgressBar draws the animated bar shown while the oracle
// resolves a turn.
func (m ConsoleUI) renderProgressBar() string {
	usable := m.storyViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		switch {
		case i < filled:
			bar.WriteString("█")
		case i == filled && frame%4 < 2:
			bar.WriteString("▓")
		default:
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
