// Package inspect serves a live view of a running store over HTTP.
//
// The REST routes read and write fields and drive undo/redo:
//
//	GET    /api/fields
//	GET    /api/fields/{name}
//	PUT    /api/fields/{name}
//	PATCH  /api/fields/{name}?path=panels.0.title
//	GET    /api/history
//	POST   /api/history/save
//	POST   /api/history/undo
//	POST   /api/history/redo
//
// GET /ws upgrades to a WebSocket that receives a "changed" message every
// time a field's subscribers are woken.
package inspect
