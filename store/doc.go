// Package store provides persistence implementations of the engine's
// Store contract: a mutex-guarded in-memory store for local development
// and tests, a GORM-backed relational store, and a MongoDB-backed
// document store.
package store
