// Package testutil provides shared test helpers and fixtures for testdb.
//
// Philosophy:
// - Prefer real SQLite (no mocks) for correctness.
// - Keep helpers small, composable, and deterministic.
// - Register cleanup via t.Cleanup so tests stay leak-free.
//
// Most packages should start with:
//
//	database := testutil.NewTestDB(t)
//	file := testutil.MakeDataFile(t, database, testutil.WithPath(testdb.TSVFilename()))
package testutil
