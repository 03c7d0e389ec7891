package shell

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "env."

// Expand replaces ${name} with vars[name] and ${env.KEY} with the environment variable KEY
// (or "" if unset). Unknown or malformed expressions are kept literally.
func Expand(value string, vars map[string]string) string {
	const prefix = "${"
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(value[i:], prefix)
		if idx < 0 {
			b.WriteString(value[i:])
			break
		}
		b.WriteString(value[i : i+idx])
		startKey := i + idx + len(prefix)
		endKey := strings.IndexByte(value[startKey:], '}')
		if endKey < 0 {
			b.WriteString(value[i+idx:])
			break
		}
		key := value[startKey : startKey+endKey]
		if name, ok := strings.CutPrefix(key, envPrefix); ok && isIdentifier(name) {
			b.WriteString(os.Getenv(name))
			i = startKey + endKey + 1
			continue
		}
		if replacement, ok := vars[key]; ok {
			b.WriteString(replacement)
			i = startKey + endKey + 1
			continue
		}
		// keep the prefix literal and rescan so nested expressions still expand
		b.WriteString(prefix)
		i = startKey
	}
	return b.String()
}

func isIdentifier(key string) bool {
	for _, r := range key {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}
