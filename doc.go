// Package main provides the entry point of confetti, a runtime settings and
// feature flag service. It stores typed setting definitions and their global
// and per-user values through gorm, resolves effective values with a cache in
// front and serves them through a REST API built on fiber. The CLI also seeds
// definitions from the configuration and manages the cache.
package main
