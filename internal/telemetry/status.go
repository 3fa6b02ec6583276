// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package telemetry

import (
	"fmt"
	"math"
)

// StatusBar is the text shown in the dashboard top bar and alert banner.
type StatusBar struct {
	Speed   string // "42 km/h"
	Battery string // "Bat 95%"
	GPS     string // "GPS OK" / "GPS LOST"
	Gear    string // "R" / "D"

	AlertVisible bool
	AlertTitle   string
	AlertText    string
}

// FormatStatus renders the status bar for st.
func FormatStatus(st State) StatusBar {
	bar := StatusBar{
		Speed:   fmt.Sprintf("%d km/h", int(math.Round(st.SpeedKmh))),
		Battery: fmt.Sprintf("Bat %d%%", st.BatteryPercent),
		GPS:     "GPS LOST",
		Gear:    "D",
	}
	if st.FixValid {
		bar.GPS = "GPS OK"
	}
	if st.Reverse {
		bar.Gear = "R"
	}

	if st.AlertLevel != AlertNone {
		bar.AlertVisible = true
		bar.AlertTitle = "WARNING"
		if st.AlertLevel == AlertCritical {
			bar.AlertTitle = "CRITICAL"
		}
		bar.AlertText = st.AlertText
	}
	return bar
}

// String returns the one-line form used by the console consumer.
func (b StatusBar) String() string {
	line := fmt.Sprintf("%-9s %-8s %-8s %s", b.Speed, b.Battery, b.GPS, b.Gear)
	if b.AlertVisible {
		line += fmt.Sprintf("  [%s] %s", b.AlertTitle, b.AlertText)
	}
	return line
}
