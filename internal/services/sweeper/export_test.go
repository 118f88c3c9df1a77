// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sweeper

import "time"

func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}
