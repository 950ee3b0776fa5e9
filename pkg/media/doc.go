// Package media acquires the images and audio clips a verification request
// refers to and tracks every file it creates until the request ends.
//
// A [Reference] names where media lives: an http(s) URL, an s3://bucket/key
// object, or a local path. [Fetcher] materializes a Reference into an
// [Artifact] on local disk. Every Artifact owned by a request is registered
// with that request's [Scope], and closing the Scope deletes them all:
//
//	scope := media.NewScope(transient, logger)
//	defer scope.Close()
//
//	img, err := fetcher.Fetch(ctx, scope, ref, media.KindImage)
//
// Caller-supplied local paths pass through unchanged and are never deleted.
package media
