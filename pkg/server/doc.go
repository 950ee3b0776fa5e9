// Package server exposes biometric verification over HTTP.
//
// Routes:
//
//	POST /api/biometric/photo        {"image_ref_1": "...", "image_ref_2": "..."}
//	POST /api/biometric/voice        {"audio_ref_1": "...", "audio_ref_2": "..."}
//	POST /api/biometric/face/detect  {"image_ref": "..."}
//	GET  /healthz
//
// References are http(s) URLs, s3://bucket/key objects or, when enabled,
// local paths. Verification failures are reported with status 200 and a
// verdict whose "error" field names the reason; 400 is reserved for
// requests that cannot be understood.
//
// Every response carries an X-Request-Id header.
package server
