package filter

import (
	"path"
	"strings"
)

// DefaultMimeType is returned for unknown extensions.
const DefaultMimeType = "application/octet-stream"

// mimeTypes maps lowercase file extensions to MIME types for the document
// formats the pipeline understands.
var mimeTypes = map[string]string{
	".pdf":      "application/pdf",
	".doc":      "application/msword",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":      "application/vnd.ms-excel",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":      "application/vnd.ms-powerpoint",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".odt":      "application/vnd.oasis.opendocument.text",
	".ods":      "application/vnd.oasis.opendocument.spreadsheet",
	".odp":      "application/vnd.oasis.opendocument.presentation",
	".rtf":      "application/rtf",
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".csv":      "text/csv",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".tif":      "image/tiff",
	".tiff":     "image/tiff",
	".zip":      "application/zip",
	".eml":      "message/rfc822",
	".msg":      "application/vnd.ms-outlook",
}

// MimeTypeFromExtension derives a MIME type from a file name's extension.
func MimeTypeFromExtension(fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if mimeType, ok := mimeTypes[ext]; ok {
		return mimeType
	}
	return DefaultMimeType
}

// textLikeExtensions are the extensions the SMB crawler queues for text
// conversion; everything else is skipped during discovery.
var textLikeExtensions = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".ppt": {}, ".pptx": {}, ".odt": {}, ".ods": {}, ".odp": {},
	".rtf": {}, ".txt": {}, ".md": {}, ".markdown": {}, ".html": {},
	".htm": {}, ".csv": {}, ".json": {}, ".xml": {},
}

// IsTextLike reports whether a file's extension marks it convertible to
// normalized text.
func IsTextLike(fileName string) bool {
	_, ok := textLikeExtensions[strings.ToLower(path.Ext(fileName))]
	return ok
}
