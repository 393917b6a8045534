// Package forms provides huh-based form components for the TUI.
package forms

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/dustin/go-humanize/english"
)

// NewConfirmReprocessForm creates a huh confirm form asking whether to
// regenerate artifacts that already exist for count videos.
// The result pointer is bound to the confirm field value.
func NewConfirmReprocessForm(count int, confirm *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reprocess telemetry?").
				Description(fmt.Sprintf("Existing artifacts for %s will be overwritten.", english.Plural(count, "video", ""))).
				Affirmative("Yes, reprocess").
				Negative("No, cancel").
				Value(confirm),
		),
	).WithTheme(Theme())
}
