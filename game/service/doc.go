// Package service provides the business logic layer for the car simulation server.
//
// The service package implements:
//   - Multi-session simulation management
//   - Scenario loading through a ConfigManager
//   - Incremental field building (add cars, step, run, reset)
//   - Round history with pagination
//
// Core Interfaces:
//
// SimulationService is the main service interface used by the REST API, the
// WebSocket hub and the MCP tools. SessionManager handles session creation,
// retrieval and persistence. ConfigManager loads and saves scenario files.
//
// Every session owns its own engine. The service serializes mutating calls,
// so a session engine is never driven from two goroutines at once.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr, _ := config.NewManager("configs")
//	svc := service.NewSimulationService(sessionMgr, configMgr)
//
//	info, err := svc.CreateFieldSession(ctx, 10, 10)
//	if err != nil {
//		return err
//	}
//	svc.AddCar(ctx, info.ID, engine.CarConfig{Name: "A", X: 1, Y: 2, Direction: "N", Commands: "FFRFFFFRRL"})
//	summary, err := svc.Run(ctx, info.ID, 0)
//
// Runs executed through the service carry a UUID so that log lines and
// WebSocket notifications of the same run can be correlated.
package service
