package postprocess

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const maxFilenameLength = 255

var (
	filenameMarkerRe = regexp.MustCompile(`(?i)<!--\s*FILENAME:\s*([^\n]+?)\s*-->`)
	trailingMarkerRe = regexp.MustCompile(`(?i)\n?<!--\s*FILENAME:.+?-->\s*$`)

	invalidFilenameChars = `<>:"/\|?*`

	// Windows device names, still rejected on other platforms so output
	// stays portable.
	reservedNames = map[string]bool{
		"CON": true, "PRN": true, "AUX": true, "NUL": true,
		"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
		"COM6": true, "COM7": true, "COM8": true, "COM9": true,
		"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
		"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
	}
)

// ExtractFilenameFromResponse pulls the suggested filename out of the
// LLM response's HTML comment marker, for example:
//
//	<!-- FILENAME: Инструкция по удалению тикета.md -->
//
// Returns "" when no marker is present. Any path components are
// stripped.
func ExtractFilenameFromResponse(response string) string {
	m := filenameMarkerRe.FindStringSubmatch(response)
	if m == nil {
		return ""
	}
	return filepath.Base(strings.TrimSpace(m[1]))
}

// StripFilenameMarker removes a trailing FILENAME comment from the
// response body.
func StripFilenameMarker(response string) string {
	return strings.TrimSpace(trailingMarkerRe.ReplaceAllString(response, ""))
}

// SanitizeFilename makes a raw name safe on Windows, Linux and macOS
// while preserving Cyrillic and other Unicode characters. The result
// always carries an extension (".md" when none was given).
func SanitizeFilename(filename string) string {
	// Path traversal guard first, so "../../etc/passwd" reduces to
	// "passwd" instead of an underscore soup. Backslashes are not
	// treated as separators here; they become underscores below.
	base := filepath.Base(filename)
	if base == "." || base == "/" {
		base = ""
	}

	var sb strings.Builder
	for _, r := range base {
		switch {
		case r < 32:
			// drop control characters
		case strings.ContainsRune(invalidFilenameChars, r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	out := strings.Trim(sb.String(), ". ")

	ext := filepath.Ext(out)
	stem := strings.TrimSuffix(out, ext)
	if reservedNames[strings.ToUpper(stem)] {
		out = "_" + out
	}

	// Reserve room for the extension and a collision suffix.
	maxLen := maxFilenameLength - 20
	if len(out) > maxLen {
		ext = filepath.Ext(out)
		stem = strings.TrimSuffix(out, ext)
		cut := maxLen - len(ext)
		for cut > 0 && cut <= len(stem) && !isRuneBoundary(stem, cut) {
			cut--
		}
		if cut < len(stem) {
			stem = stem[:cut]
		}
		out = stem + ext
	}

	if out != "" && filepath.Ext(out) == "" {
		out += ".md"
	}
	return out
}

func isRuneBoundary(s string, i int) bool {
	if i <= 0 || i >= len(s) {
		return true
	}
	return s[i]&0xC0 != 0x80
}

// ValidateFilename reports whether a suggested name survives
// sanitization with something usable.
func ValidateFilename(filename string) bool {
	if filename == "" {
		return false
	}
	sanitized := SanitizeFilename(filename)
	if sanitized == "" || sanitized == "." || sanitized == ".." {
		return false
	}
	return filepath.Ext(sanitized) != ""
}

// ResolveCollision returns a path in outputDir that does not clash with
// an existing file, appending _1, _2, ... and falling back to a
// timestamp suffix.
func ResolveCollision(outputDir, filename string) string {
	path := filepath.Join(outputDir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)

	for i := 1; i < 1000; i++ {
		candidate := filepath.Join(outputDir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return filepath.Join(outputDir, fmt.Sprintf("%s_%d%s", stem, time.Now().Unix(), ext))
}

// GenerateSafeFilename turns an LLM-suggested name (possibly empty or
// hostile) into a safe, collision-free path under outputDir.
func GenerateSafeFilename(suggested, outputDir, defaultPrefix string) string {
	var filename string
	if suggested != "" && ValidateFilename(suggested) {
		filename = SanitizeFilename(suggested)
	}
	if filename == "" {
		if defaultPrefix == "" {
			defaultPrefix = "transcript"
		}
		filename = defaultPrefix + ".md"
	}
	return ResolveCollision(outputDir, filename)
}
