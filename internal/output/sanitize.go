package output

import "strings"

// filenameReplacer maps characters that are unsafe in filenames on at
// least one supported platform to underscores
var filenameReplacer = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// maxFilenameRunes keeps sanitized names well under common filesystem
// limits even with a numeric prefix and extension added
const maxFilenameRunes = 150

// SanitizeFilename turns a chapter title into a safe filename: runs of
// whitespace collapse to single spaces, unsafe characters become
// underscores and overly long names are truncated. An empty result
// becomes "untitled".
func SanitizeFilename(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	name = filenameReplacer.Replace(name)

	if runes := []rune(name); len(runes) > maxFilenameRunes {
		name = string(runes[:maxFilenameRunes])
	}

	if name == "" {
		return "untitled"
	}
	return name
}
