package nodeconfig

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ruteri/ergo-devnet-provisioning/interfaces"
)

// apiKeyHashPattern matches an assignment that starts a line, opens an inline
// object or follows a comma:
//
//	apiKeyHash = "..."
//	scorex.restApi.apiKeyHash = "..."
//	restApi { bindAddress = "0.0.0.0:9052", apiKeyHash = "..." }
//
// Group 1 is the quoted value. Matches on commented-out lines are dropped by
// apiKeyHashAssignments.
var apiKeyHashPattern = regexp.MustCompile(`(?m)(?:^|[{,])[ \t]*(?:[A-Za-z0-9_-]+\.)*apiKeyHash[ \t]*[=:][ \t]*"([^"\n]*)"`)

// ExtractAPIKeyHash returns the value of the apiKeyHash assignment. When the
// document assigns it more than once the last assignment wins, as in HOCON.
func ExtractAPIKeyHash(conf []byte) (string, error) {
	matches := apiKeyHashAssignments(conf)
	if len(matches) == 0 {
		return "", interfaces.ErrConfigMalformed
	}
	m := matches[len(matches)-1]
	return string(conf[m[2]:m[3]]), nil
}

// ReplaceAPIKeyHash rewrites the quoted value of every apiKeyHash assignment.
// All other bytes of the document are preserved.
func ReplaceAPIKeyHash(conf []byte, hash string) ([]byte, error) {
	if strings.ContainsAny(hash, "\"\n") {
		return nil, fmt.Errorf("invalid hash value %q", hash)
	}

	matches := apiKeyHashAssignments(conf)
	if len(matches) == 0 {
		return nil, interfaces.ErrConfigMalformed
	}

	out := make([]byte, 0, len(conf)+len(matches)*len(hash))
	last := 0
	for _, m := range matches {
		valueStart, valueEnd := m[2], m[3]
		out = append(out, conf[last:valueStart]...)
		out = append(out, hash...)
		last = valueEnd
	}
	out = append(out, conf[last:]...)
	return out, nil
}

// apiKeyHashAssignments returns the submatch indices of every assignment that is
// not on a commented-out line.
func apiKeyHashAssignments(conf []byte) [][]int {
	var live [][]int
	for _, m := range apiKeyHashPattern.FindAllSubmatchIndex(conf, -1) {
		lineStart := bytes.LastIndexByte(conf[:m[0]], '\n') + 1
		prefix := bytes.TrimLeft(conf[lineStart:m[0]], " \t")
		if bytes.HasPrefix(prefix, []byte("#")) || bytes.HasPrefix(prefix, []byte("//")) {
			continue
		}
		live = append(live, m)
	}
	return live
}
