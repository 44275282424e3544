// Package mcp exposes the car simulation to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API and the JSON response is rendered as plain text.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - add_car, step_simulation, run_simulation, reset_simulation
//   - simulation_state, round_history
//   - simulate: run a whole scenario without a session
//   - list_configs, simulation_instructions
//
// Numeric arguments are coerced with spf13/cast, so "3", 3 and 3.0 are all
// accepted.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	handler := server.NewStreamableHTTPServer(client.GetMCPServer())
//	http.Handle("/mcp", handler)
package mcp
