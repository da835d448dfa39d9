package bom

import "errors"

// File-level errors. Any of these means no UploadResult was produced.
var (
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrFileTooLarge       = errors.New("file exceeds maximum size")
	ErrEmptyFile          = errors.New("file is empty")
	ErrLegacyWorkbook     = errors.New("legacy binary workbook (.xls) is not supported")
	ErrUnreadableWorkbook = errors.New("spreadsheet could not be read")
)

// Row transition errors.
var (
	ErrRowNotFound       = errors.New("row not found")
	ErrRowDeleted        = errors.New("row has been deleted")
	ErrNotMatched        = errors.New("row has no matched product")
	ErrInvalidTransition = errors.New("invalid row transition")
	ErrEmptyProductID    = errors.New("product id is required")
)
