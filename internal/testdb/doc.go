// Package testdb manages the database lifecycle of a test session.
//
// A Session creates the "default" test database once, before any test in
// the package runs, lets every test use it, and destroys it after the last
// test finishes. Setup failures abort the run; teardown failures are
// reported as warnings and never change the exit code.
//
// Typical use from a package's TestMain:
//
//	var session = testdb.NewSession()
//
//	func TestMain(m *testing.M) {
//		os.Exit(session.Run(m))
//	}
//
//	func TestSomething(t *testing.T) {
//		conn := session.DB(t)
//		...
//	}
package testdb
