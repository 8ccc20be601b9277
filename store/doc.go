// Package store persists dispatch runs.
//
// A RunRecord captures one call to Dispatch: the model name, the
// inputs, the settled outputs and any failed functions. Backends live
// in subpackages:
//
//   - memory: in-process map, for tests and short-lived tools
//   - file: one JSON document per run in a directory
//   - sqlite: embedded database, single file
//   - redis: shared cache with optional expiration
//   - postgres: durable shared storage
//
// All backends implement RunStore and index runs by model name, so
// repeated runs of the same model can be listed and compared.
package store
