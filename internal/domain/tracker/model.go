package tracker

import (
	"fmt"
	"time"

	"github.com/rpggio/tt/internal/domain/project"
	"github.com/rpggio/tt/internal/domain/timeblock"
)

// OpenEntry pairs an open time block with its project
type OpenEntry struct {
	Project   project.Project     `json:"project"`
	Timeblock timeblock.Timeblock `json:"timeblock"`
	Elapsed   time.Duration       `json:"elapsed"`
}

// Status lists the work in progress at a point in time
type Status struct {
	At   time.Time   `json:"at"`
	Open []OpenEntry `json:"open"`
}

// FormatElapsed renders d as HH:MM:SS, truncated to whole seconds. Hours may
// exceed two digits.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}
