package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"
	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Auto Driving Car Simulation",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Auto Driving Car Simulation - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Cars drive on a rectangular field. Each car has a position, a heading (N, E, S, W)
and a program of commands: L (turn left), R (turn right), F (move forward).
All cars execute one command per round. Cars that end a round on the same cell
collide and stop for good.

AVAILABLE TOOLS:
- create_session: Create a session from a scenario or an empty field
- add_car: Add a car to a session before it starts
- step_simulation: Execute one round
- run_simulation: Run until every car is done or collided
- reset_simulation: Restore the cars to their starting positions
- simulation_state: Field view and car list
- round_history: What happened in each round
- simulate: Run a whole scenario in one call
- list_sessions, get_session, list_configs
- simulation_instructions: Rules and coordinate conventions`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session from a scenario, or an empty field when width and height are given",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Scenario to load (optional, see list_configs)",
				},
				"width": map[string]interface{}{
					"type":        "integer",
					"description": "Field width for an empty session",
				},
				"height": map[string]interface{}{
					"type":        "integer",
					"description": "Field height for an empty session",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active simulation sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Simulation operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_car",
		Description: "Add a car to a session. Only allowed before the first round.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Unique car name",
				},
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Starting column (0 is the west edge)",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Starting row (0 is the south edge)",
				},
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"N", "E", "S", "W"},
					"description": "Starting heading",
				},
				"commands": map[string]interface{}{
					"type":        "string",
					"description": "Program of L, R and F commands, e.g. FFRFFFFRRL",
				},
			},
			Required: []string{"session_id", "name", "x", "y", "direction", "commands"},
		},
	}, c.handleAddCar)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step_simulation",
		Description: "Execute a single round: every active car runs its next command",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_simulation",
		Description: "Run rounds until the simulation finishes, or until max_rounds rounds have run",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"max_rounds": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum rounds to execute (optional, 0 means until finished)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_simulation",
		Description: "Reset every car to its starting position and heading",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_state",
		Description: "Get the current field view and car list",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "round_history",
		Description: "Get the round history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Rounds per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest or newest rounds first",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleRoundHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulate",
		Description: "Run a complete scenario without creating a session and return the final report",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"width": map[string]interface{}{
					"type":        "integer",
					"description": "Field width",
				},
				"height": map[string]interface{}{
					"type":        "integer",
					"description": "Field height",
				},
				"cars": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"name":      map[string]interface{}{"type": "string"},
							"x":         map[string]interface{}{"type": "integer"},
							"y":         map[string]interface{}{"type": "integer"},
							"direction": map[string]interface{}{"type": "string"},
							"commands":  map[string]interface{}{"type": "string"},
						},
					},
					"description": "Cars in insertion order",
				},
			},
			Required: []string{"width", "height", "cars"},
		},
	}, c.handleSimulate)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available scenarios",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_instructions",
		Description: "Get the simulation rules and conventions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(sessionID string, parts ...string) string {
	path := "/api/sessions/" + url.PathEscape(sessionID)
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

// arguments returns the tool arguments as a map, empty when absent
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

// requireSessionID extracts session_id or returns a tool error result
func requireSessionID(args map[string]interface{}) (string, *mcp.CallToolResult) {
	sessionID := strings.TrimSpace(cast.ToString(args["session_id"]))
	if sessionID == "" {
		return "", mcp.NewToolResultError("session_id is required")
	}
	return sessionID, nil
}

// intArg coerces a numeric argument; JSON numbers arrive as float64 and
// some clients send strings
func intArg(args map[string]interface{}, key string) (int, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var whole bool
	switch v := raw.(type) {
	case float64:
		whole = v == math.Trunc(v)
	case float32:
		whole = float64(v) == math.Trunc(float64(v))
	default:
		whole = true
	}
	n, err := cast.ToIntE(raw)
	if err != nil || !whole {
		return 0, true, fmt.Errorf("%s must be an integer", key)
	}
	return n, true, nil
}

// carConfigArg converts a loosely typed car object into a CarConfig
func carConfigArg(raw interface{}) (engine.CarConfig, error) {
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return engine.CarConfig{}, fmt.Errorf("car must be an object")
	}
	x, _, err := intArg(m, "x")
	if err != nil {
		return engine.CarConfig{}, err
	}
	y, _, err := intArg(m, "y")
	if err != nil {
		return engine.CarConfig{}, err
	}
	return engine.CarConfig{
		Name:      cast.ToString(m["name"]),
		X:         x,
		Y:         y,
		Direction: cast.ToString(m["direction"]),
		Commands:  cast.ToString(m["commands"]),
	}, nil
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID := cast.ToString(args["config_id"]); configID != "" {
		body["config_id"] = configID
	}
	width, hasWidth, err := intArg(args, "width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	height, hasHeight, err := intArg(args, "height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if hasWidth || hasHeight {
		body["width"] = width
		body["height"] = height
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\n\n%s", session.ID, formatSessionInfo(&session))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		cars, round := 0, 0
		if s.State != nil {
			cars, round = len(s.State.Cars), s.State.Round
		}
		config := s.ConfigName
		if config == "" {
			config = "custom"
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Cars: %d, Round: %d, Created: %s)\n",
			s.ID, config, cars, round, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleAddCar(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSessionID(args)
	if errResult != nil {
		return errResult, nil
	}

	car, err := carConfigArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.AddCarResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "cars"), car, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Added car:\n%s\n\n%s", result.Entry, formatState(result.State))), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var result service.StepResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "step"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStepResult(&result)), nil
}

func (c *Client) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSessionID(args)
	if errResult != nil {
		return errResult, nil
	}

	maxRounds, _, err := intArg(args, "max_rounds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var body interface{}
	if maxRounds > 0 {
		body = map[string]int{"max_rounds": maxRounds}
	}

	var summary service.RunSummary
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "run"), body, &summary); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRunSummary(&summary)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var response struct {
		Message string           `json:"message"`
		State   *engine.SimState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatState(response.State))), nil
}

func (c *Client) handleState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResult := requireSessionID(arguments(request))
	if errResult != nil {
		return errResult, nil
	}

	var state engine.SimState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleRoundHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, errResult := requireSessionID(args)
	if errResult != nil {
		return errResult, nil
	}

	query := url.Values{}
	for _, key := range []string{"page", "limit"} {
		n, ok, err := intArg(args, key)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if ok {
			query.Set(key, cast.ToString(n))
		}
	}
	if order := cast.ToString(args["order"]); order != "" {
		query.Set("order", order)
	}

	path := sessionPath(sessionID, "history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleSimulate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	width, _, err := intArg(args, "width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	height, _, err := intArg(args, "height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rawCars, err := cast.ToSliceE(args["cars"])
	if err != nil {
		return mcp.NewToolResultError("cars must be an array"), nil
	}

	scenario := engine.ScenarioConfig{
		Name:  "mcp",
		Field: engine.FieldConfig{Width: width, Height: height},
	}
	for i, raw := range rawCars {
		car, err := carConfigArg(raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cars[%d]: %v", i, err)), nil
		}
		scenario.Cars = append(scenario.Cars, car)
	}

	var result service.SimulateResult
	if err := c.apiCall(ctx, "POST", "/api/simulate", scenario, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Your current list of cars are:\n")
	for _, entry := range result.Cars {
		b.WriteString(entry + "\n")
	}
	fmt.Fprintf(&b, "\nAfter simulation (%d rounds), the result is:\n", result.Result.Rounds)
	for _, line := range result.Report {
		b.WriteString(line + "\n")
	}
	if len(result.FieldView) > 0 {
		b.WriteString("\nFinal field:\n")
		b.WriteString(strings.Join(result.FieldView, "\n"))
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Scenarios:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n", config.ConfigID, config.Name)
		if config.Description != "" {
			fmt.Fprintf(&b, "  %s\n", config.Description)
		}
		fmt.Fprintf(&b, "  Field: %dx%d, Cars: %d\n\n", config.Width, config.Height, config.Cars)
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Auto Driving Car Simulation - Instructions

FIELD:
• A rectangle of width x height cells. (0,0) is the bottom-left (south-west) corner.
• x grows to the east, y grows to the north.

CARS:
• Each car has a unique name, a position, a heading (N, E, S, W) and a program.
• Commands: L turns 90° left, R turns 90° right, F moves one cell forward.
• A forward move that would leave the field is ignored, the command is still used up.

ROUNDS:
• In every round each active car executes its next command, in the order cars were added.
• After all cars have moved, cars sharing a cell collide.
• Collided cars stop for good and keep their position.
• A car whose program is used up simply stays where it is.
• The simulation ends when no car has commands left or every remaining car has collided.

RESULT:
• A car that finished: "- A, (5,4) S"
• A car that collided: "- A, collides with B at (5,4) at step 7"

FIELD VIEW LEGEND:
• '.' empty cell
• first letter of a car name: a single active car
• 'X' collided car
• '*' several active cars on one cell

TYPICAL FLOW:
1. create_session with width/height (or a config_id)
2. add_car once per car
3. step_simulation to watch round by round, or run_simulation to finish
4. round_history to review, reset_simulation to try again`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session ID: %s\n", session.ID)
	if session.ConfigName != "" {
		fmt.Fprintf(&b, "Config: %s\n", session.ConfigName)
	}
	fmt.Fprintf(&b, "Created: %s\n", session.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Last Accessed: %s\n", session.LastAccessedAt.Format(time.RFC3339))
	if session.State != nil {
		b.WriteString("\n")
		b.WriteString(formatState(session.State))
	}
	return b.String()
}

func formatState(state *engine.SimState) string {
	if state == nil {
		return "State: unavailable"
	}

	var b strings.Builder
	status := "not started"
	switch {
	case state.Finished:
		status = "finished"
	case state.Started:
		status = "running"
	}
	fmt.Fprintf(&b, "Field: %dx%d • Round: %d • Status: %s\n", state.Field.Width, state.Field.Height, state.Round, status)
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}

	if len(state.FieldView) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(state.FieldView, "\n"))
		b.WriteString("\n")
	}

	if len(state.Cars) == 0 {
		b.WriteString("\nNo cars yet.\n")
		return b.String()
	}

	b.WriteString("\nCars:\n")
	for _, car := range state.Cars {
		line := engine.FormatReport(car.Report())
		if !car.Collided {
			line += fmt.Sprintf(" [%d/%d commands]", car.Cursor, len(car.Commands))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func formatRound(b *strings.Builder, round *engine.RoundRecord) {
	fmt.Fprintf(b, "Round %d:\n", round.Round)
	for _, move := range round.Moves {
		switch {
		case move.Blocked:
			fmt.Fprintf(b, "  %s %s blocked at %s\n", move.Car, move.Command, move.From)
		case move.From != move.To:
			fmt.Fprintf(b, "  %s %s %s→%s\n", move.Car, move.Command, move.From, move.To)
		default:
			fmt.Fprintf(b, "  %s %s %s→%s\n", move.Car, move.Command, move.HeadingBefore, move.HeadingAfter)
		}
	}
	for _, group := range round.Collisions {
		fmt.Fprintf(b, "  collision at %s: %s\n", group.Position, strings.Join(group.Cars, ", "))
	}
}

func formatStepResult(result *service.StepResult) string {
	var b strings.Builder
	if result.Message != "" {
		b.WriteString(result.Message + "\n")
	}
	if result.Executed && result.Round != nil {
		formatRound(&b, result.Round)
	}
	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatState(result.State))
	return b.String()
}

func formatRunSummary(summary *service.RunSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s executed %d rounds", summary.RunID, summary.RoundsExecuted)
	if summary.Truncated {
		b.WriteString(" (stopped at the round limit)")
	}
	fmt.Fprintf(&b, "\nCollided cars: %d • Blocked moves: %d\n", summary.Collisions, summary.BlockedMoves)

	if len(summary.Report) > 0 {
		b.WriteString("\nAfter simulation, the result is:\n")
		for _, line := range summary.Report {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(formatState(summary.State))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round History (Page %d/%d) • Total rounds: %d\n\n",
		history.Page, history.TotalPages, history.TotalRounds)

	if len(history.Rounds) == 0 {
		b.WriteString("(no rounds yet)\n")
		return b.String()
	}
	for i := range history.Rounds {
		formatRound(&b, &history.Rounds[i])
	}
	return b.String()
}
