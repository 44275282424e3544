package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	maxCellSize       = 40
	minCellSize       = 6
	headerHeight      = 80
	footerHeight      = 30
	screenWidth       = 800
	screenHeight      = 720
	animationDuration = 150 * time.Millisecond
	crashDuration     = 400 * time.Millisecond
	pollInterval      = 500 * time.Millisecond
)

// ScreenType represents different screens in the app
type ScreenType int

const (
	ScreenWelcome ScreenType = iota
	ScreenField
)

// Car colors, assigned in insertion order
var carColors = []color.RGBA{
	{255, 100, 100, 255}, // Red
	{100, 100, 255, 255}, // Blue
	{100, 255, 100, 255}, // Green
	{255, 255, 100, 255}, // Yellow
	{255, 100, 255, 255}, // Magenta
	{100, 255, 255, 255}, // Cyan
	{255, 165, 0, 255},   // Orange
	{128, 0, 128, 255},   // Purple
	{255, 192, 203, 255}, // Pink
}

var (
	backgroundColor = color.RGBA{20, 20, 30, 255}
	cellColor       = color.RGBA{60, 60, 70, 255}
	wreckColor      = color.RGBA{90, 0, 0, 255}
)

// Viewer watches one or more simulation sessions
type Viewer struct {
	api           *APIClient
	sessions      []*SessionView
	activeSession int
	currentScreen ScreenType
	welcome       *WelcomeScreen
	statusMsg     string
}

// WelcomeScreen manages the session selection state
type WelcomeScreen struct {
	availableSessions []SessionListItem
	availableConfigs  []ConfigListItem
	selected          map[string]bool
	cursorPos         int
	errorMsg          string
	newSessionConfig  string // config_id for the next created session
}

// NewViewer creates a viewer. With session IDs it opens them directly.
func NewViewer(api *APIClient, sessionIDs []string) *Viewer {
	v := &Viewer{
		api:           api,
		currentScreen: ScreenWelcome,
		welcome: &WelcomeScreen{
			selected: make(map[string]bool),
		},
	}

	if len(sessionIDs) > 0 {
		for _, id := range sessionIDs {
			v.addSession(id)
		}
		v.currentScreen = ScreenField
	} else {
		v.loadWelcomeData()
	}
	return v
}

func (v *Viewer) addSession(sessionID string) {
	view := NewSessionView(sessionID)
	v.sessions = append(v.sessions, view)

	if err := v.api.Watch(view); err != nil {
		log.Printf("WebSocket unavailable for %s: %v (falling back to polling)", sessionID, err)
	}
	v.refresh(view)
}

func (v *Viewer) refresh(view *SessionView) {
	state, err := v.api.FetchState(view.sessionID)
	if err != nil {
		log.Printf("Error fetching state for %s: %v", view.sessionID, err)
		return
	}
	view.Apply(state, time.Now())
}

func (v *Viewer) loadWelcomeData() {
	ws := v.welcome
	ws.errorMsg = ""

	sessions, err := v.api.ListSessions()
	if err != nil {
		ws.errorMsg = fmt.Sprintf("Error loading sessions: %v", err)
		return
	}
	ws.availableSessions = sessions

	configs, err := v.api.ListConfigs()
	if err != nil {
		ws.errorMsg = fmt.Sprintf("Error loading configs: %v", err)
		return
	}
	ws.availableConfigs = configs

	if ws.cursorPos >= len(sessions) {
		ws.cursorPos = len(sessions) - 1
	}
	if ws.cursorPos < 0 {
		ws.cursorPos = 0
	}
}

func (v *Viewer) sendAction(action string) {
	if len(v.sessions) == 0 {
		return
	}

	view := v.sessions[v.activeSession]
	state, err := v.api.Action(view.sessionID, action)
	if err != nil {
		v.statusMsg = fmt.Sprintf("%s failed: %v", action, err)
		return
	}
	v.statusMsg = state.Message
	view.Apply(state, time.Now())
}

// Update handles input
func (v *Viewer) Update() error {
	switch v.currentScreen {
	case ScreenWelcome:
		v.updateWelcomeScreen()
	case ScreenField:
		v.updateFieldScreen()
	}
	return nil
}

func (v *Viewer) updateWelcomeScreen() {
	ws := v.welcome

	if inpututil.IsKeyJustPressed(ebiten.KeyF5) {
		v.loadWelcomeData()
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) && ws.cursorPos < len(ws.availableSessions)-1 {
		ws.cursorPos++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) && ws.cursorPos > 0 {
		ws.cursorPos--
	}

	if inpututil.IsKeyJustPressed(ebiten.KeySpace) && ws.cursorPos < len(ws.availableSessions) {
		id := ws.availableSessions[ws.cursorPos].ID
		if ws.selected[id] {
			delete(ws.selected, id)
		} else {
			ws.selected[id] = true
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		ws.newSessionConfig = nextConfig(ws.availableConfigs, ws.newSessionConfig)
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyN) {
		id, err := v.api.CreateSession(ws.newSessionConfig)
		if err != nil {
			ws.errorMsg = fmt.Sprintf("Failed to create session: %v", err)
		} else {
			ws.selected[id] = true
			log.Printf("Created new session: %s (config: %s)", id, ws.newSessionConfig)
			v.loadWelcomeData()
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		if len(ws.selected) == 0 {
			ws.errorMsg = "Please select at least one session"
			return
		}
		for _, item := range ws.availableSessions {
			if ws.selected[item.ID] && !v.watching(item.ID) {
				v.addSession(item.ID)
			}
		}
		v.currentScreen = ScreenField
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && len(v.sessions) > 0 {
		v.currentScreen = ScreenField
	}
}

// nextConfig cycles through the configs, with "" (server default) after the last one
func nextConfig(configs []ConfigListItem, current string) string {
	next := 0
	if current != "" {
		for i, cfg := range configs {
			if cfg.ConfigID == current {
				next = i + 1
				break
			}
		}
	}
	if next >= len(configs) {
		return ""
	}
	return configs[next].ConfigID
}

func (v *Viewer) watching(sessionID string) bool {
	for _, view := range v.sessions {
		if view.sessionID == sessionID {
			return true
		}
	}
	return false
}

func (v *Viewer) updateFieldScreen() {
	if len(v.sessions) == 0 {
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
			v.currentScreen = ScreenWelcome
			v.loadWelcomeData()
		}
		return
	}

	now := time.Now()
	for _, view := range v.sessions {
		if !view.Connected() && view.Stale(now, pollInterval) {
			v.refresh(view)
		}
	}

	for key := ebiten.Key1; key <= ebiten.Key9; key++ {
		if inpututil.IsKeyJustPressed(key) {
			if idx := int(key - ebiten.Key1); idx < len(v.sessions) {
				v.activeSession = idx
				v.statusMsg = ""
			}
		}
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace), inpututil.IsKeyJustPressed(ebiten.KeyS):
		v.sendAction("step")
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		v.sendAction("run")
	case inpututil.IsKeyJustPressed(ebiten.KeyX):
		v.sendAction("reset")
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		v.currentScreen = ScreenWelcome
		v.loadWelcomeData()
	}
}

// Draw renders the current screen
func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)
	switch v.currentScreen {
	case ScreenWelcome:
		v.drawWelcomeScreen(screen)
	case ScreenField:
		v.drawFieldScreen(screen)
	}
}

func (v *Viewer) drawWelcomeScreen(screen *ebiten.Image) {
	ws := v.welcome

	y := 20
	ebitenutil.DebugPrintAt(screen, "=== AUTO DRIVING CAR SIMULATION - SESSION SELECT ===", 160, y)
	y += 30

	if ws.errorMsg != "" {
		ebitenutil.DebugPrintAt(screen, "ERROR: "+ws.errorMsg, 20, y)
		y += 20
	}

	ebitenutil.DebugPrintAt(screen, "Available Sessions:", 20, y)
	y += 20
	if len(ws.availableSessions) == 0 {
		ebitenutil.DebugPrintAt(screen, "  No sessions found. Press N to create one.", 20, y)
		y += 20
	}
	for i, item := range ws.availableSessions {
		cursor := "  "
		if i == ws.cursorPos {
			cursor = "> "
		}
		checkbox := "[ ]"
		if ws.selected[item.ID] {
			checkbox = "[X]"
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s%s %s | %s", cursor, checkbox, item.ID, StatusLine(item.State)), 20, y)
		y += 15
	}

	y += 20
	configDisplay := "default"
	if ws.newSessionConfig != "" {
		configDisplay = ws.newSessionConfig
	}
	ebitenutil.DebugPrintAt(screen, "Create New Session: "+configDisplay, 20, y)
	y += 20
	for _, cfg := range ws.availableConfigs {
		marker := "  "
		if cfg.ConfigID == ws.newSessionConfig {
			marker = "> "
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("    %s%s %dx%d %d car(s) - %s",
			marker, cfg.ConfigID, cfg.Width, cfg.Height, cfg.Cars, cfg.Description), 20, y)
		y += 15
	}

	y += 20
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("Selected: %d session(s)", len(ws.selected)), 20, y)
	y += 30
	for _, line := range []string{
		"CONTROLS:",
		"  UP/DOWN  - Navigate sessions",
		"  SPACE    - Toggle session selection",
		"  TAB      - Cycle scenario for new session",
		"  N        - Create new session",
		"  ENTER    - Watch selected sessions",
		"  F5       - Refresh",
	} {
		ebitenutil.DebugPrintAt(screen, line, 20, y)
		y += 15
	}
}

func (v *Viewer) drawFieldScreen(screen *ebiten.Image) {
	if len(v.sessions) == 0 {
		ebitenutil.DebugPrint(screen, "No sessions. Press ESC to go to session select.")
		return
	}

	v.drawSessionStats(screen)

	view := v.sessions[v.activeSession]
	state := view.State()
	if state == nil {
		ebitenutil.DebugPrintAt(screen, "Loading...", 10, headerHeight)
		return
	}

	size := cellSize(state.Field)
	for x := 0; x < state.Field.Width; x++ {
		for y := 0; y < state.Field.Height; y++ {
			px, py := cellOrigin(state.Field, size, float64(x), float64(y))
			ebitenutil.DrawRect(screen, px, py, float64(size-1), float64(size-1), cellColor)
		}
	}

	now := time.Now()
	for idx, car := range state.Cars {
		carColor := carColors[idx%len(carColors)]
		x, y := view.DisplayPosition(car, now)
		px, py := cellOrigin(state.Field, size, x, y)

		if car.Collided {
			ebitenutil.DrawRect(screen, px, py, float64(size-1), float64(size-1), wreckColor)
		}

		var shakeX, shakeY float64
		if progress, crashing := view.CrashProgress(car.Name, now); crashing {
			intensity := 4.0 * (1.0 - progress)
			shakeX = intensity * math.Sin(progress*40)
			shakeY = intensity * math.Cos(progress*40)

			flash := (1.0 - progress) * 0.7
			carColor.R = uint8(float64(carColor.R)*(1.0-flash) + 255*flash)
		}

		inset := float64(size) / 8
		ebitenutil.DrawRect(screen, px+inset+shakeX, py+inset+shakeY,
			float64(size)-2*inset-1, float64(size)-2*inset-1, carColor)

		if size >= 20 {
			label := string([]rune(car.Name)[:1]) + car.Heading
			if car.Collided {
				label = "X"
			}
			ebitenutil.DebugPrintAt(screen, label, int(px+inset+2), int(py+inset+2))
		}
	}

	if v.statusMsg != "" {
		ebitenutil.DebugPrintAt(screen, v.statusMsg, 10, screenHeight-footerHeight-5)
	}
	ebitenutil.DebugPrintAt(screen, "1-9: Switch Session | SPACE/S: Step | R: Run | X: Reset | ESC: Menu", 10, screenHeight-20)
}

func (v *Viewer) drawSessionStats(screen *ebiten.Image) {
	for idx, view := range v.sessions {
		y := 5 + idx*15

		marker := "   "
		if idx == v.activeSession {
			marker = ">>>"
		}
		conn := "POLL"
		if view.Connected() {
			conn = "WS"
		}
		ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s [%d] %s [%s] %s",
			marker, idx+1, view.sessionID, conn, StatusLine(view.State())), 10, y)
	}
}

// cellSize fits the field into the drawing area below the header
func cellSize(field Field) int {
	if field.Width <= 0 || field.Height <= 0 {
		return maxCellSize
	}
	size := maxCellSize
	if w := screenWidth / field.Width; w < size {
		size = w
	}
	if h := (screenHeight - headerHeight - footerHeight) / field.Height; h < size {
		size = h
	}
	if size < minCellSize {
		size = minCellSize
	}
	return size
}

// cellOrigin maps a field cell to its top-left pixel. North is drawn at the top.
func cellOrigin(field Field, size int, x, y float64) (float64, float64) {
	px := x * float64(size)
	py := (float64(field.Height-1)-y)*float64(size) + headerHeight
	return px, py
}

// Layout returns the screen size
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	defaultServer := os.Getenv("CARSIM_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	server := flag.String("server", defaultServer, "Simulation server URL")
	flag.Parse()

	viewer := NewViewer(NewAPIClient(*server), flag.Args())

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Auto Driving Car Simulation - Session Viewer")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(viewer); err != nil {
		log.Fatal(err)
	}
}
