// Package ocr proxies text extraction to the Google Cloud Vision API.
//
// Images arrive as base64 and are forwarded to the images:annotate
// endpoint with Chinese language hints. The call is bounded by a hard
// timeout and never retried; upstream failures surface immediately.
package ocr
