package fsops

import (
	"fmt"
	"strings"
)

// SanitizeError reports an entry path that failed sanitization. A single
// bad path aborts the whole merge: silently dropping entries would produce
// an inconsistent pack without signaling the operator.
type SanitizeError struct {
	// Raw is the entry path as declared by the source.
	Raw string

	// Reason is a human-readable explanation of the violation.
	Reason string
}

// Error implements the error interface.
func (e *SanitizeError) Error() string {
	return fmt.Sprintf("unsafe entry path %q: %s", e.Raw, e.Reason)
}

// SanitizeEntryPath validates a raw archive entry path and returns its
// normalized form: forward-slash separators, no leading "./", no leading
// separator, no drive prefix. Both "/" and "\" are accepted as input
// separators since zip entries may be written on either platform.
//
// "." segments are dropped during normalization; any ".." segment is
// rejected outright. This guards against zip-slip, where a crafted entry
// path resolves outside the extraction root. Rejection happens before any
// byte of the entry is considered for writing.
func SanitizeEntryPath(raw string) (string, error) {
	if raw == "" {
		return "", &SanitizeError{Raw: raw, Reason: "empty path"}
	}
	if strings.ContainsRune(raw, 0) {
		return "", &SanitizeError{Raw: raw, Reason: "embedded null byte"}
	}
	if strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "\\") {
		return "", &SanitizeError{Raw: raw, Reason: "absolute path"}
	}
	if hasDrivePrefix(raw) {
		return "", &SanitizeError{Raw: raw, Reason: "drive prefix"}
	}

	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	segments := make([]string, 0, len(split))
	for _, seg := range split {
		switch seg {
		case ".":
			// harmless, normalize away
		case "..":
			return "", &SanitizeError{Raw: raw, Reason: "parent-directory segment"}
		default:
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return "", &SanitizeError{Raw: raw, Reason: "no path segments"}
	}

	return strings.Join(segments, "/"), nil
}

// hasDrivePrefix reports whether the path starts with a Windows volume
// prefix such as "C:".
func hasDrivePrefix(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
