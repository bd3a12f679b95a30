// Package store provides run journal implementations for calcflow.
// The RunStore interface is defined in the parent calcflow package
// (../store_interface.go) to avoid import cycles between the calcflow
// and store packages.
//
// This package contains concrete implementations:
//   - MemoryStore: In-memory journal, the default for local use and tests
//   - DynamoDBStore: AWS DynamoDB journal for deployed pipelines
//
// Journals exist for status queries only. Runs are never resumed from them.
//
// Schema design follows the single-table pattern defined in schema.go.
package store
