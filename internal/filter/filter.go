// Package filter decides whether a discovered file should be ingested.
// Filtering is a pure predicate over the file's name, path, and size plus a
// per-crawler configuration: include patterns, exclude patterns, size bounds,
// and a MIME allow-list, evaluated in that order with the first failing rule
// winning.
package filter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jonesrussell/golibrary/internal/logger"
)

const bytesPerMB = 1024 * 1024

// Filter types reported in a rejection result.
const (
	TypeIncludePattern = "include_pattern"
	TypeExcludePattern = "exclude_pattern"
	TypeFileSize       = "file_size"
	TypeMimeType       = "mime_type"
)

// Config holds the filter rules for one crawler. All fields are optional; an
// empty config allows everything.
type Config struct {
	IncludePatterns  []string `json:"includePatterns,omitempty"`
	ExcludePatterns  []string `json:"excludePatterns,omitempty"`
	MaxFileSize      *float64 `json:"maxFileSize,omitempty"` // MB
	MinFileSize      *float64 `json:"minFileSize,omitempty"` // MB
	AllowedMimeTypes []string `json:"allowedMimeTypes,omitempty"`
}

// FileInfo describes the candidate file under evaluation.
type FileInfo struct {
	Name string
	Path string
	// Size in bytes; negative means unknown and skips the size rules.
	Size int64
}

// Result is the outcome of evaluating a file against a config.
type Result struct {
	Allowed     bool
	Reason      string
	FilterType  string
	FilterValue string
}

// Engine evaluates filter configs. Invalid regex patterns are logged once per
// evaluation and treated as non-matching.
type Engine struct {
	logger logger.Interface
}

// NewEngine creates a new filter engine.
func NewEngine(log logger.Interface) *Engine {
	return &Engine{logger: log}
}

// Evaluate applies the configured rules to a file. Rules run in order:
// include patterns, exclude patterns, size bounds, MIME allow-list.
func (e *Engine) Evaluate(file FileInfo, cfg *Config) Result {
	if cfg == nil {
		return Result{Allowed: true}
	}

	if len(cfg.IncludePatterns) > 0 {
		included := false
		for _, pattern := range cfg.IncludePatterns {
			re, ok := e.compile(pattern, TypeIncludePattern)
			if !ok {
				continue
			}
			if re.MatchString(file.Path) || re.MatchString(file.Name) {
				included = true
				break
			}
		}
		if !included {
			return Result{
				Allowed:     false,
				Reason:      fmt.Sprintf("file %q does not match any include patterns", file.Name),
				FilterType:  TypeIncludePattern,
				FilterValue: e.firstValidPattern(cfg.IncludePatterns),
			}
		}
	}

	for _, pattern := range cfg.ExcludePatterns {
		re, ok := e.compile(pattern, TypeExcludePattern)
		if !ok {
			continue
		}
		if re.MatchString(file.Path) || re.MatchString(file.Name) {
			return Result{
				Allowed:     false,
				Reason:      fmt.Sprintf("file %q matches exclude pattern: %s", file.Name, pattern),
				FilterType:  TypeExcludePattern,
				FilterValue: pattern,
			}
		}
	}

	if file.Size >= 0 {
		if cfg.MaxFileSize != nil && float64(file.Size) > *cfg.MaxFileSize*bytesPerMB {
			return Result{
				Allowed: false,
				Reason: fmt.Sprintf("file %q size %s exceeds maximum limit of %g MB",
					file.Name, FormatSize(file.Size), *cfg.MaxFileSize),
				FilterType:  TypeFileSize,
				FilterValue: fmt.Sprintf("max:%g", *cfg.MaxFileSize),
			}
		}
		if cfg.MinFileSize != nil && float64(file.Size) < *cfg.MinFileSize*bytesPerMB {
			return Result{
				Allowed: false,
				Reason: fmt.Sprintf("file %q size %s is below minimum limit of %g MB",
					file.Name, FormatSize(file.Size), *cfg.MinFileSize),
				FilterType:  TypeFileSize,
				FilterValue: fmt.Sprintf("min:%g", *cfg.MinFileSize),
			}
		}
	}

	if len(cfg.AllowedMimeTypes) > 0 {
		detected := MimeTypeFromExtension(file.Name)
		allowed := false
		for _, mimeType := range cfg.AllowedMimeTypes {
			if strings.EqualFold(mimeType, detected) {
				allowed = true
				break
			}
		}
		if !allowed {
			return Result{
				Allowed: false,
				Reason: fmt.Sprintf("file %q MIME type %q is not in allowed types: %s",
					file.Name, detected, strings.Join(cfg.AllowedMimeTypes, ", ")),
				FilterType:  TypeMimeType,
				FilterValue: strings.Join(cfg.AllowedMimeTypes, ","),
			}
		}
	}

	return Result{Allowed: true}
}

// compile builds a case-insensitive regex from a pattern. Malformed patterns
// are logged and reported as invalid, never fatal.
func (e *Engine) compile(pattern, filterType string) (*regexp.Regexp, bool) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		e.logger.Warn("skipping invalid filter pattern",
			"pattern", pattern,
			"filter_type", filterType,
			"error", err)
		return nil, false
	}
	return re, true
}

// firstValidPattern returns the first compilable pattern for reporting, or
// the first pattern verbatim when none compile.
func (e *Engine) firstValidPattern(patterns []string) string {
	for _, pattern := range patterns {
		if _, err := regexp.Compile("(?i)" + pattern); err == nil {
			return pattern
		}
	}
	if len(patterns) > 0 {
		return patterns[0]
	}
	return ""
}

// RawConfig carries the JSON-encoded filter fields as persisted on a crawler
// row.
type RawConfig struct {
	IncludePatterns  *string
	ExcludePatterns  *string
	AllowedMimeTypes *string
	MaxFileSize      *float64
	MinFileSize      *float64
}

// ParseConfig deserializes the crawler's JSON-encoded filter fields. Each
// field is parsed independently; a parse failure leaves that field unset and
// the rest intact.
func ParseConfig(raw RawConfig, log logger.Interface) *Config {
	cfg := &Config{
		MaxFileSize: raw.MaxFileSize,
		MinFileSize: raw.MinFileSize,
	}

	cfg.IncludePatterns = parseStringList(raw.IncludePatterns, "include_patterns", log)
	cfg.ExcludePatterns = parseStringList(raw.ExcludePatterns, "exclude_patterns", log)
	cfg.AllowedMimeTypes = parseStringList(raw.AllowedMimeTypes, "allowed_mime_types", log)

	return cfg
}

func parseStringList(raw *string, field string, log logger.Interface) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(*raw), &values); err != nil {
		log.Warn("failed to parse filter config field", "field", field, "error", err)
		return nil
	}
	return values
}

// FormatSize renders a byte count in human readable form.
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB", "TB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}
