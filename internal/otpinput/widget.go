// Package otpinput models the six-cell one-time-password entry: one digit
// per cell, auto-advance, backspace-to-previous, arrow navigation and
// paste splitting. It holds no rendering; callers feed it user events and
// read back cell contents and focus.
//
// A widget is reset by replacing it with a new instance.
package otpinput

import (
	"strings"
)

// Length is the number of cells.
const Length = 6

// Key is a navigation or editing key delivered to a cell.
type Key string

const (
	KeyBackspace  Key = "Backspace"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"
)

// Widget is not safe for concurrent use; the login flow serializes access.
type Widget struct {
	digits     [Length]string
	focus      int
	selected   bool
	disabled   bool
	errorState bool
	onComplete func(code string)
}

// New returns an empty widget focused on the first cell. onComplete may be nil.
func New(onComplete func(code string)) *Widget {
	return &Widget{onComplete: onComplete}
}

// Input applies a cell's new raw value. Values containing anything but
// digits are rejected. Only the last character is kept.
func (w *Widget) Input(cell int, value string) bool {
	if w.disabled || !inRange(cell) || !isDigits(value) {
		return false
	}

	next := w.digits
	if value == "" {
		next[cell] = ""
	} else {
		next[cell] = value[len(value)-1:]
	}
	w.apply(next)

	if value != "" && cell < Length-1 {
		w.moveFocus(cell + 1)
	}
	return true
}

// KeyDown handles Backspace and the arrow keys for the given cell.
func (w *Widget) KeyDown(cell int, key Key) bool {
	if w.disabled || !inRange(cell) {
		return false
	}

	switch key {
	case KeyBackspace:
		if w.digits[cell] == "" && cell > 0 {
			w.moveFocus(cell - 1)
			return true
		}
		next := w.digits
		next[cell] = ""
		w.apply(next)
		w.focus = cell
		return true
	case KeyArrowLeft:
		if cell > 0 {
			w.moveFocus(cell - 1)
		}
		return true
	case KeyArrowRight:
		if cell < Length-1 {
			w.moveFocus(cell + 1)
		}
		return true
	}
	return false
}

// Paste fills every cell from a payload of exactly six digits and
// focuses the last cell. Any other payload is ignored.
func (w *Widget) Paste(text string) bool {
	if w.disabled {
		return false
	}
	text = strings.TrimSpace(text)
	if len(text) != Length || !isDigits(text) {
		return false
	}

	var next [Length]string
	for i := 0; i < Length; i++ {
		next[i] = text[i : i+1]
	}
	w.apply(next)
	w.moveFocus(Length - 1)
	return true
}

// Focus moves focus to cell and selects its content.
func (w *Widget) Focus(cell int) bool {
	if w.disabled || !inRange(cell) {
		return false
	}
	w.moveFocus(cell)
	return true
}

func (w *Widget) SetDisabled(disabled bool) { w.disabled = disabled }

// SetError toggles the error presentation. It has no behavioural effect.
func (w *Widget) SetError(on bool) { w.errorState = on }

func (w *Widget) Disabled() bool { return w.disabled }
func (w *Widget) Error() bool    { return w.errorState }
func (w *Widget) Focused() int   { return w.focus }

// Selected reports whether the focused cell's content is selected.
func (w *Widget) Selected() bool { return w.selected }

func (w *Widget) Digits() [Length]string { return w.digits }

func (w *Widget) Code() string { return strings.Join(w.digits[:], "") }

func (w *Widget) Complete() bool { return complete(w.digits) }

// apply stores next and reports a complete code on every accepted edit,
// including one that leaves the digits unchanged.
func (w *Widget) apply(next [Length]string) {
	w.digits = next
	if complete(next) && w.onComplete != nil {
		w.onComplete(w.Code())
	}
}

func (w *Widget) moveFocus(cell int) {
	w.focus = cell
	w.selected = w.digits[cell] != ""
}

func complete(d [Length]string) bool {
	for _, c := range d {
		if c == "" {
			return false
		}
	}
	return true
}

func inRange(cell int) bool {
	return cell >= 0 && cell < Length
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
