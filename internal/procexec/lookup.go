// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procexec

import (
	"fmt"
	"os/exec"
)

// LookupTools resolves each binary against PATH (or as an explicit path).
// The returned map has one entry per name; nil means the tool is usable.
func LookupTools(names ...string) map[string]error {
	out := make(map[string]error, len(names))
	for _, name := range names {
		if _, ok := out[name]; ok {
			continue
		}
		if name == "" {
			out[name] = fmt.Errorf("%w: empty tool name", ErrToolMissing)
			continue
		}
		if _, err := exec.LookPath(name); err != nil {
			out[name] = fmt.Errorf("%w: %s: %v", ErrToolMissing, name, err)
			continue
		}
		out[name] = nil
	}
	return out
}
