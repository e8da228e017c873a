package otp

import "strings"

// DefaultLength is the number of slots used when NewBuffer receives a non-positive size.
const DefaultLength = 6

// NoFocus is reported in State.Focus when the entry does not move focus.
const NoFocus = -1

// FocusFunc receives the slot index that should take input focus next.
type FocusFunc func(index int)

// State is the buffer contents after an edit, plus the focus hint it produced.
type State struct {
	Digits   []string
	Focus    int
	Complete bool
}

// Buffer holds a partially entered one-time code, one decimal digit per slot.
//
// Buffer is not safe for concurrent use; it belongs to the verification stage
// that created it.
type Buffer struct {
	slots   []byte
	onFocus FocusFunc
}

// NewBuffer returns an empty buffer with n slots.
func NewBuffer(n int) *Buffer {
	if n <= 0 {
		n = DefaultLength
	}
	return &Buffer{slots: make([]byte, n)}
}

// OnFocus registers fn to be called with every focus hint the buffer emits.
func (b *Buffer) OnFocus(fn FocusFunc) {
	b.onFocus = fn
}

// Len reports the number of slots.
func (b *Buffer) Len() int {
	return len(b.slots)
}

// SetDigit writes the first decimal digit found in raw into slot index.
//
// Every non-decimal character is discarded first. If nothing remains the slot
// is cleared. Out-of-range indexes leave the buffer untouched.
func (b *Buffer) SetDigit(index int, raw string) State {
	if index < 0 || index >= len(b.slots) {
		return b.state(NoFocus)
	}

	d := firstDigit(raw)
	b.slots[index] = d

	focus := NoFocus
	if d != 0 && index < len(b.slots)-1 {
		focus = index + 1
	}
	return b.emit(focus)
}

// Backspace handles a deletion keypress on slot index. A filled slot is
// cleared in place; an empty slot moves focus back one position.
func (b *Buffer) Backspace(index int) State {
	if index < 0 || index >= len(b.slots) {
		return b.state(NoFocus)
	}
	if b.slots[index] != 0 {
		b.slots[index] = 0
		return b.state(NoFocus)
	}
	if index == 0 {
		return b.state(NoFocus)
	}
	return b.emit(index - 1)
}

// Code returns the entered code when every slot holds a digit.
// ok is false while the buffer is incomplete.
func (b *Buffer) Code() (code string, ok bool) {
	var sb strings.Builder
	sb.Grow(len(b.slots))
	for _, d := range b.slots {
		if d == 0 {
			return "", false
		}
		sb.WriteByte(d)
	}
	return sb.String(), true
}

// Filled reports how many slots currently hold a digit.
func (b *Buffer) Filled() int {
	n := 0
	for _, d := range b.slots {
		if d != 0 {
			n++
		}
	}
	return n
}

// Digits returns a copy of the slots; empty slots are "".
func (b *Buffer) Digits() []string {
	out := make([]string, len(b.slots))
	for i, d := range b.slots {
		if d != 0 {
			out[i] = string(rune(d))
		}
	}
	return out
}

// Clear empties every slot and points focus at the first one.
func (b *Buffer) Clear() State {
	for i := range b.slots {
		b.slots[i] = 0
	}
	return b.emit(0)
}

func (b *Buffer) emit(focus int) State {
	if focus != NoFocus && b.onFocus != nil {
		b.onFocus(focus)
	}
	return b.state(focus)
}

func (b *Buffer) state(focus int) State {
	return State{
		Digits:   b.Digits(),
		Focus:    focus,
		Complete: b.Filled() == len(b.slots),
	}
}

func firstDigit(raw string) byte {
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			return raw[i]
		}
	}
	return 0
}
