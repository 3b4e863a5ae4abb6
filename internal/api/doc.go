// Package api exposes the allow-list administration surface over HTTP.
//
// Rule listings, single-rule mutations, bulk CSV uploads and manual
// reconciliation passes are routed with chi. Every error response uses the
// same envelope:
//
//	{"request_id": "req_...", "error": {"code": "...", "message": "...", "details": ...}}
package api
