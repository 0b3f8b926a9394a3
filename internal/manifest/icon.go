package manifest

import _ "embed"

// defaultIcon is a 1x1 transparent PNG compiled into the binary. It is
// injected at pack.png only when no input supplied an icon.
//
//go:embed default_pack.png
var defaultIcon []byte

// DefaultIcon returns a copy of the built-in pack icon. The embedded
// bytes are read-only; callers receive a copy so the process-wide
// constant can never be mutated.
func DefaultIcon() []byte {
	icon := make([]byte, len(defaultIcon))
	copy(icon, defaultIcon)
	return icon
}
