// Package domain defines the payload types and the contracts shared by the bridge
// and its adapters.
//
// Concept-oriented files (payload.go, producer.go, events.go, errors.go). No implementation code.
// Interfaces live here so the bridge never imports an adapter.
package domain
