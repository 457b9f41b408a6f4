// Package push uploads a dataset file to a running trialdash server.
//
// Uploads go to POST /api/upload-data as a multipart form. Transient
// failures (network errors, 5xx, 429) are retried with truncated exponential
// backoff and jitter. Rejections (4xx) are permanent and returned at once,
// carrying the server's validation messages when it sent any.
package push
