// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package password

import "io"

// SetRand replaces the salt source.
func (h *Hasher) SetRand(r io.Reader) {
	h.rand = r
}
