package parser

import (
	"bytes"
	"regexp"
)

// objectKindPattern matches "object_kind":"<kind>" allowing whitespace
// around the colon.
func objectKindPattern(kind string) *regexp.Regexp {
	return regexp.MustCompile(`"object_kind"\s*:\s*"` + regexp.QuoteMeta(kind) + `"`)
}

func hasKeys(payload []byte, keys ...string) bool {
	for _, k := range keys {
		if !bytes.Contains(payload, []byte(`"`+k+`"`)) {
			return false
		}
	}
	return true
}
