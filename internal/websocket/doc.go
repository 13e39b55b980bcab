// Package websocket pushes analysis progress to browser clients.
//
// A Hub owns the set of connected clients and fans messages out to them.
// Each Client runs a read pump that only detects disconnects and a write
// pump that delivers queued messages and keeps the connection alive with
// pings. Slow clients whose buffers fill up are disconnected rather than
// allowed to stall the hub.
package websocket
