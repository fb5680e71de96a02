// Package rotation walks a note's Index through its settings bank.
package rotation

// Next returns the index to use on the following repetition.
// With no settings the index is left as it is.
func Next(current, settingsCount int) int {
	if settingsCount == 0 {
		return current
	}
	if current < settingsCount-1 {
		return current + 1
	}
	return 0
}

// SettingLine is the prompt line naming the current setting, or "" when
// the note has no settings. An index outside the bank wraps around.
func SettingLine(settings []string, index int) string {
	if len(settings) == 0 {
		return ""
	}
	return "The setting/theme should be: " + settings[wrap(index, len(settings))]
}

func wrap(index, n int) int {
	index %= n
	if index < 0 {
		index += n
	}
	return index
}
