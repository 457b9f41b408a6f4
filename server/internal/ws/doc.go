// Package ws implements the WebSocket hub for the trialdash dashboard.
//
// Hub manages a set of connected clients and pushes the current dashboard to
// all of them on a configurable interval (server.stream.interval, default 5s)
// and immediately after every successful dataset load.
//
// New(store, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker; it blocks until ctx is cancelled,
// then closes all active connections.
// Hub.Broadcast() pushes the current dashboard right away.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// dashboard immediately on connect, then streams updates.
//
// Message format sent to clients:
//
//	{
//	  "event":      "dashboard",
//	  "seq":        42,
//	  "dataset_id": "…",  // omitted until a dataset is loaded
//	  "data":       { /* same schema as GET /api/dashboard */ }
//	}
//
// A slow client whose queue fills up is disconnected rather than allowed to
// hold back the others.
//
// The WebSocket endpoint is mounted at /ws/stream by the server.
package ws
