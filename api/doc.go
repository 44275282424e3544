// Package api provides the HTTP REST API for the car simulation.
//
// Endpoints:
//
// Stateless:
//   - POST /api/simulate - Run a scenario body to completion and return the report
//
// Session Management:
//   - POST /api/sessions - Create a session from {config_id} or an empty {width,height} field
//   - GET /api/sessions - List sessions (sort=created|accessed, order=asc|desc, limit=N)
//   - GET /api/sessions/unified - Several sessions at once (sessionIds=a,b or configName=x)
//   - GET /api/sessions/{id} - Get a session with its state
//   - DELETE /api/sessions/{id} - Delete a session
//
// Simulation:
//   - POST /api/sessions/{id}/cars - Add a car {name,x,y,direction,commands}
//   - POST /api/sessions/{id}/step - Execute one round
//   - POST /api/sessions/{id}/run - Run until finished, or {max_rounds} rounds
//   - POST /api/sessions/{id}/reset - Restore cars to their starting positions
//   - GET /api/sessions/{id}/state - Current state with a rendered field view
//   - GET /api/sessions/{id}/history - Round history (page, limit, order)
//
// Configuration:
//   - GET /api/configs - List scenario files
//   - GET /api/configs/{name} - Get a scenario
//   - POST /api/configs - Save a scenario
//
// Live updates are pushed over GET /ws?session={id} when the server has a hub.
//
// Errors are returned as JSON, {"error": "message"}, with the status derived
// from the error chain: 400 for validation failures, 404 for unknown
// sessions or configs, 409 for adding cars to a started simulation.
package api
