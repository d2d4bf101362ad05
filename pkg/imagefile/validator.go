package imagefile

import (
	"path/filepath"
	"regexp"
	"strings"
)

// mainFormats are the container formats offered by default in file pickers.
var mainFormats = map[string]bool{
	"img": true,
	"iso": true,
	"zip": true,
}

// extendedFormats are the remaining registered container formats.
var extendedFormats = map[string]bool{
	"bin":    true,
	"bz2":    true,
	"dmg":    true,
	"dsk":    true,
	"etch":   true,
	"gz":     true,
	"hddimg": true,
	"raw":    true,
	"sdcard": true,
	"xz":     true,
}

// windowsImagePattern matches filenames that look like Windows installer
// images. False positives are acceptable: the match only triggers a
// confirmation prompt, it never blocks selection.
var windowsImagePattern = regexp.MustCompile(`(?i)windows|win7|win8|win10|winxp`)

// IsSupportedImage reports whether the path's extension belongs to a
// registered container format. Malformed or extension-less paths yield false.
func IsSupportedImage(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return false
	}
	return mainFormats[ext] || extendedFormats[ext]
}

// LooksLikeWindowsImage reports whether the file name matches the Windows
// image heuristic.
func LooksLikeWindowsImage(path string) bool {
	return windowsImagePattern.MatchString(filepath.Base(path))
}

// MissingPartitionTable reports whether the descriptor carries no master
// boot record.
func MissingPartitionTable(d Descriptor) bool {
	return !d.HasMBR
}
