package storage

import "strings"

var filenameReplacer = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	"*", "_",
	"?", "_",
	":", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename turns a region display name into a file name: the first
// line of the trimmed name with path-breaking characters replaced by "_".
// The result may be empty.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, "\r\n"); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return filenameReplacer.Replace(name)
}
