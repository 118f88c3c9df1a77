// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package codes

import "io"

// SetRand replaces the random source.
func (g *Generator) SetRand(r io.Reader) {
	g.rand = r
}
