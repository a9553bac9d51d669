// Package server is the HTTP façade and process orchestrator for dushu.
//
// It wires the store, dictionary, OCR client, and authenticators behind a
// single http.ServeMux, runs the listener (plain TCP or a Tailscale tsnet
// node), and handles graceful shutdown. Every request is handled
// independently; the only shared state is the immutable dictionary and
// the durable store.
package server
