// Package core is the service layer around the BOM engine.
//
// It is independent of any transport: web handlers, CLI tools and tests
// call the same [Service] methods.
//
// # Upload Sessions
//
// [Service.Upload] reads a file (CSV or XLSX, at most 10 MiB), loads the
// current catalog snapshot and runs the engine synchronously. The result is
// stored under a random session ID together with the catalog snapshot it
// was matched against. Sessions expire after Options.SessionTTL of
// inactivity; [Service.StartSessionSweeper] removes expired sessions in the
// background.
//
// # Row Transitions
//
// Users act on rows through [Service.AcceptRow], [Service.RejectRow],
// [Service.MapRow], [Service.DeleteRow] and [Service.AcceptAll]. Every
// successful transition is logged with the session, the client address and
// user agent, and counted in the Prometheus metrics.
//
// # Concurrency
//
// [UploadLimiter] bounds how many uploads are processed at once. Requests
// beyond the limit wait up to Options.MaxWaitTime and then fail with
// [ErrTooManyUploads].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE006: file errors (size, type, empty, legacy or broken workbook)
//   - SES001-SES002: session errors
//   - ROW001-ROW005: row transition errors
//   - CAT001-CAT002: catalog errors
//   - UPL002, UPL004, UPL005: busy, cancelled, timed out
package core
