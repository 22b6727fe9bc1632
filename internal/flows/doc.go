// Package flows contains the orchestration behind each Engine operation.
//
// Every flow (RunSignup, RunLogin, RunRefresh, RunLogout, RunReset, RunAuthenticate)
// takes a dependency struct built once by the root engine. Flows hold no state of
// their own; atomicity comes from the stores and the refresh ledger.
//
// # Architecture boundaries
//
// Flows call the user store, the password hasher, the recovery generator and the
// refresh ledger through the functions in their Deps, and report outcomes through
// [Observer]. They return the host's sentinel errors, supplied in each Errors struct.
//
// # What this package must NOT do
//
//   - Import the root package.
//   - Log passwords, recovery codes, tokens or secrets.
//   - Take locks.
package flows
