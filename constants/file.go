package constants

import "strings"

// AllowedExtensions holds the spreadsheet extensions accepted for automation uploads.
var AllowedExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
	"xltx": {},
	"xltm": {},
}

// XLSXContentType is the media type used for uploads and exports.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt checks if a file extension is an accepted spreadsheet format.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
