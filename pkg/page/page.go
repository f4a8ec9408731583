// Package page describes the boundary between the form components and the
// markup/accessibility tree that renders them. Components only read and write
// through Page; the tree itself belongs to whoever hosts the form (a browser
// bridge, a terminal session, a test).
package page

// Politeness selects the live region channel an announcement is written to.
type Politeness string

const (
	// Polite waits for assistive technology to finish the current utterance.
	Polite Politeness = "polite"
	// Assertive interrupts whatever is being read.
	Assertive Politeness = "assertive"
)

// Valid reports whether p names a known channel.
func (p Politeness) Valid() bool {
	return p == Polite || p == Assertive
}

// Page is the write surface of the markup tree.
type Page interface {
	// SetInvalid toggles the invalid flag (aria-invalid) of a field.
	SetInvalid(fieldID string, invalid bool)
	// SetFieldMessage writes the field's adjacent message region; an empty
	// message clears it.
	SetFieldMessage(fieldID, message string)
	// SetHidden shows or hides a grouped section such as a step.
	SetHidden(sectionID string, hidden bool)
	// Focus moves keyboard focus to an element.
	Focus(elementID string)
	// SetProgress updates the step indicator.
	SetProgress(current, total int)
	// SetFormMessage writes the form-level message region.
	SetFormMessage(message string)
	// SetLiveText replaces the text of a live region.
	SetLiveText(channel Politeness, text string)
}
