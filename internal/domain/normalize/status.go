// Package normalize cleans raw feed records into canonical events.
package normalize

import (
	"strings"

	"github.com/okian/loadboard/internal/domain/model"
)

// synonyms maps trimmed, lower-cased labels to known stages.
// Built once at init and never written afterwards.
var synonyms = map[string]model.Status{ //nolint:gochecknoglobals // read-only lookup table
	"waiting":          model.StatusWaiting,
	"wait":             model.StatusWaiting,
	"start":            model.StatusStartLoading,
	"start loading":    model.StatusStartLoading,
	"loading start":    model.StatusStartLoading,
	"complete":         model.StatusCompleteLoading,
	"completed":        model.StatusCompleteLoading,
	"complete loading": model.StatusCompleteLoading,
}

// Status maps a free-form label to a known stage. Labels outside the
// synonym table are returned unchanged, including their original spacing.
func Status(label string) model.Status {
	if s, ok := synonyms[strings.ToLower(strings.TrimSpace(label))]; ok {
		return s
	}
	return model.Status(label)
}

// Synonyms returns a copy of the lookup table.
func Synonyms() map[string]model.Status {
	out := make(map[string]model.Status, len(synonyms))
	for k, v := range synonyms {
		out[k] = v
	}
	return out
}
