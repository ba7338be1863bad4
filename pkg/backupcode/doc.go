// Package backupcode manages single-use recovery codes for accounts with
// two-factor authentication enabled.
//
// Codes are generated in fixed-size batches over an unambiguous alphabet,
// stored only as bcrypt hashes, and consumed exactly once. Generating a new
// batch replaces the previous one atomically.
package backupcode
