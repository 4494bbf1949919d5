// Package logtail reads and parses the dashboard's log file.
//
// # Reading
//
// Read returns the last maxLines of a file in one sequential pass using a
// ring buffer, so memory stays O(maxLines) regardless of file size:
//
//	lines, err := logtail.Read(cfg.LogFile, 2000)
//	if err != nil {
//		log.Printf("[WARN] failed to read log: %v", err)
//	}
//
// A missing file yields nil, nil: the dashboard may not have written anything
// yet. Other I/O errors are returned wrapped.
//
// # Parsing
//
// The CLI logs through lgr with millisecond timestamps and braced levels, and
// with the caller in debug mode:
//
//	2025/10/08 21:01:05.123 [INFO]  subscription loaded
//	2025/10/08 21:01:05.123 [DEBUG] {api/client.go:88 api.(*Client).Do} GET /subscriptions
//
// Parse splits such a line into an Entry. Lines that don't match the format
// (panics, output from before logging was configured) are kept whole in
// Entry.Message, and a leading "[LEVEL]" is still recognized.
//
// Styling is the UI's job; this package has no terminal dependencies.
package logtail
