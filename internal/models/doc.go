// Package models defines persisted entities and the repository interface for qmc.
//
//   - [LoginAttempt] : one QR login attempt with its method, final status and timing
//
// Persistent entities implement [Model]; the [Repository] interface defines the CRUD operations a storage backend provides.
package models
