package loader

import (
	"golang.org/x/text/unicode/norm"

	"github.com/riftforge/assets/internal/source"
)

// Key is the dedup identity of one logical load: format name plus the
// NFC-normalized clean path. Two spellings of the same name (composed vs
// decomposed accents, redundant slashes) collapse to one key; the same
// path under two formats stays two keys.
func Key(name string, formatName string) (string, error) {
	cleaned, err := source.CleanName(name)
	if err != nil {
		return "", err
	}
	return formatName + ":" + norm.NFC.String(cleaned), nil
}
