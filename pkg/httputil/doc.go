// Package httputil provides the HTTP plumbing used to fetch remote assets.
//
// # Overview
//
//   - [Cache]: file-based cache of raw response bodies with a TTL
//   - [Client]: GET with default headers, status mapping, retry and caching
//   - [Retry]: retry with exponential backoff for [RetryableError]s
//
// # Caching
//
// Shape outlines, motifs, masks and textures rarely change, so [Client]
// keeps every successful body under ~/.cache/memorial/http by default.
// Keys are namespaced per asset host to avoid collisions:
//
//	c, _ := httputil.NewCache("", 7*24*time.Hour)
//	assets := c.Namespace("assets.example.com:")
//
// # Retry
//
// Network errors and 5xx responses are wrapped in [RetryableError] and
// retried up to 3 times with 1s, 2s backoff. 404 maps to [ErrNotFound] and
// is never retried.
package httputil
