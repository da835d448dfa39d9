// Package bom turns an uploaded bill of materials into catalog matches.
//
// The package has no database, HTTP or filesystem dependencies. Callers hand
// it file bytes and a catalog snapshot and get back an [UploadResult] whose
// rows can then be accepted, rejected, remapped or deleted by the user.
//
// # Pipeline
//
// Processing runs as a single synchronous batch:
//
//  1. [Parse] checks the declared mime type and size, sniffs the container
//     and turns each data row into a [RawRecord]. Malformed rows become
//     [RowError] entries instead of aborting the file.
//  2. [Normalizer.Normalize] converts a record into a [Line]: family and
//     grade tokens, a family-specific [Dimensions] vector, quantity and unit.
//  3. [Matcher.Match] scores the line against every catalog product of the
//     same family and maps the best composite score onto a [Confidence] tier.
//  4. [Aggregate] wraps the matched lines into rows with an initial
//     [RowState] and builds the [UploadResult].
//
// [Engine.Process] wires the four stages together.
//
// # Row lifecycle
//
// Rows start in auto_high, auto_medium, auto_low or unmatched according to
// the matcher tier. From there:
//
//	auto_* | unmatched  --ManuallyMap-->  manual_mapped
//	manual_mapped       --ManuallyMap-->  manual_mapped
//	auto_*              --RejectRow-->    unmatched
//	any                 --DeleteRow-->    deleted (terminal)
//
// A manually mapped row always reports [ConfidenceHigh]. The engine's own
// [MatchResult] is never modified, so the original decision stays auditable.
//
// # Errors
//
// File-level problems ([ErrUnsupportedType], [ErrFileTooLarge],
// [ErrEmptyFile], [ErrLegacyWorkbook], [ErrUnreadableWorkbook]) are returned
// as errors and no result is produced. Row problems are collected in
// [UploadResult.ParseErrors]. A weak or missing match is not an error.
package bom
