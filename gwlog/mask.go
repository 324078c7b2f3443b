package gwlog

import (
	"fmt"
	"strings"
)

// maskAPIKeys redacts obvious API-key-shaped substrings from a log message,
// the same best-effort approach the teacher's logger.maskAPIKeys takes
// rather than a full regex scan.
func maskAPIKeys(message string) string {
	if !strings.Contains(message, "sk-") && !strings.Contains(message, "Bearer") {
		return message
	}
	out := message
	from := 0
	for {
		rel := strings.Index(out[from:], "sk-")
		if rel == -1 {
			break
		}
		idx := from + rel
		end := idx + 3
		for end < len(out) && isKeyChar(out[end]) {
			end++
		}
		out = out[:idx] + "sk-***" + out[end:]
		from = idx + len("sk-***")
	}
	out = strings.ReplaceAll(out, "Bearer sk-***", "Bearer ***")
	return out
}

func isKeyChar(b byte) bool {
	return b == '_' || b == '-' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func sprintfMasked(mask bool, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if mask {
		return maskAPIKeys(msg)
	}
	return msg
}
