// Package backend is a client for the remote recognition service that runs
// face detection/embedding and speaker diarization models.
//
// The service exposes three endpoints:
//
//	POST /v1/faces     multipart "file" → {"faces": [{"embedding", "score", "box"}]}
//	POST /v1/diarize   multipart "file" → {"segments": [{"start", "end", "speaker", "confidence"}]}
//	GET  /healthz
//
// Requests are never retried: verification is synchronous and the caller
// decides whether to try again.
//
// Example:
//
//	client := backend.NewClient("https://models.internal:8443", backend.WithAPIKey(key))
//	faces, err := client.DetectFaces(ctx, "/tmp/biovault/image-....png")
package backend
