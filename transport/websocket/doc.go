// Package websocket pushes live simulation updates to browser clients.
//
// Clients connect to /ws?session=<id> and receive JSON messages of the form
//
//	{"session_id": "ab12", "event": "round", "state": {...}, "data": {...}}
//
// Events are state_update, round, run_complete, car_added and reset. The Hub
// keeps clients grouped by (lowercase) session ID. Its client map is only
// touched by the Run goroutine; registration, broadcasts and client counts
// all go through channels. Clients whose send buffer is full are dropped.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastEvent(sessionID, websocket.EventRound, state, record)
package websocket
