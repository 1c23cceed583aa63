// Package httpapi exposes docscan over HTTP.
//
// It serves the JSON API used by the web frontend (upload, document view,
// batch search, stats, reprocess) and three Server-Sent Events streams:
//
//	GET /api/events/{docId}   progress events for one document ("progress")
//	GET /api/events/search    live search matches for ?q= ("match")
//	GET /api/events/stats     global statistics ("stats")
//
// Stored uploads and page thumbnails are served under /uploads/.
package httpapi
