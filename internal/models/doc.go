// Package models defines domain entities and persistence interfaces for the termsync reconciliation service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing term data
//   - [Term] : A payment term (name plus integer id) from a workbook or registry
//   - [Comparison] : The partition produced by comparing source terms against a registry
//   - [NameMismatch] : A term id recorded under different names on each side
//   - [CreationReport] : Per-term outcomes of a batch create against the registry
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [SyncRun] : Reconciliation runs tracking counts, status, and results
//   - [CreationOutcome] : Per-term create results attached to a run
//   - [TermSnapshot] : Cached registry terms from the most recent fetch
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
