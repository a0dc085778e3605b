// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/projects/:id/ws and receive the project's
// recent event history followed by live events as JSON text frames.
package websocket
