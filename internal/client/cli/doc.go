// Package cli provides the interactive AuthIgel command-line client.
//
// It drives the record and backup services through a small REPL and runs
// a background watcher that asks the backup service for an automatic
// backup every check interval. The watcher never blocks the prompt.
//
// Key features:
//   - List records and show their live codes
//   - Add records by fields or by otpauth URI, delete them
//   - Plain-text export/import and QR export
//   - Backup password, frequency, manual backup and restore
//
// The REPL is started via App.Run(ctx, in), which blocks until the user
// exits. See App, StartAutoBackupWatcher, and runREPL for details.
package cli
