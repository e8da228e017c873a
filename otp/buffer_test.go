package otp

import (
	"reflect"
	"testing"
)

func fill(t *testing.T, b *Buffer, code string) {
	t.Helper()
	for i := 0; i < len(code); i++ {
		b.SetDigit(i, code[i:i+1])
	}
}

func TestSetDigitStripsNonDigitsAndKeepsFirst(t *testing.T) {
	b := NewBuffer(6)

	st := b.SetDigit(0, "a7b9")
	if st.Digits[0] != "7" {
		t.Fatalf("expected slot 0 to hold 7, got %q", st.Digits[0])
	}
	if st.Focus != 1 {
		t.Fatalf("expected focus to advance to 1, got %d", st.Focus)
	}

	st = b.SetDigit(1, "x-")
	if st.Digits[1] != "" {
		t.Fatalf("expected slot 1 to stay empty, got %q", st.Digits[1])
	}
	if st.Focus != NoFocus {
		t.Fatalf("expected no focus move for empty entry, got %d", st.Focus)
	}
}

func TestSetDigitIgnoresNonASCIIDigits(t *testing.T) {
	b := NewBuffer(6)

	st := b.SetDigit(0, "٣")
	if st.Digits[0] != "" {
		t.Fatalf("expected arabic-indic digit to be stripped, got %q", st.Digits[0])
	}
}

func TestSetDigitOutOfRangeIsNoOp(t *testing.T) {
	b := NewBuffer(6)
	b.SetDigit(0, "1")

	before := b.Digits()
	for _, idx := range []int{-1, 6, 100} {
		st := b.SetDigit(idx, "9")
		if st.Focus != NoFocus {
			t.Fatalf("index %d: expected no focus hint, got %d", idx, st.Focus)
		}
	}
	if !reflect.DeepEqual(before, b.Digits()) {
		t.Fatalf("expected buffer unchanged, got %v", b.Digits())
	}
}

func TestLastSlotDoesNotAdvanceFocus(t *testing.T) {
	b := NewBuffer(6)

	st := b.SetDigit(5, "4")
	if st.Focus != NoFocus {
		t.Fatalf("expected no focus move from last slot, got %d", st.Focus)
	}
}

func TestCodeIncompleteUntilEverySlotFilled(t *testing.T) {
	b := NewBuffer(6)
	fill(t, b, "12345")

	if _, ok := b.Code(); ok {
		t.Fatal("expected incomplete code with 5 of 6 slots")
	}

	st := b.SetDigit(5, "6")
	if !st.Complete {
		t.Fatal("expected complete state after last digit")
	}
	code, ok := b.Code()
	if !ok || code != "123456" {
		t.Fatalf("expected 123456, got %q ok=%v", code, ok)
	}
}

func TestCodeIncompleteWithGap(t *testing.T) {
	b := NewBuffer(6)
	fill(t, b, "123456")
	b.SetDigit(2, "")

	if _, ok := b.Code(); ok {
		t.Fatal("expected incomplete code after clearing middle slot")
	}
}

func TestBackspaceMovesFocusOnlyFromEmptySlot(t *testing.T) {
	b := NewBuffer(6)
	fill(t, b, "12")

	st := b.Backspace(1)
	if st.Digits[1] != "" || st.Focus != NoFocus {
		t.Fatalf("expected slot 1 cleared without focus move, got %q focus=%d", st.Digits[1], st.Focus)
	}

	st = b.Backspace(1)
	if st.Focus != 0 {
		t.Fatalf("expected focus back to 0 from empty slot, got %d", st.Focus)
	}

	st = b.Backspace(0)
	if st.Focus != NoFocus {
		t.Fatalf("expected no focus move from first slot, got %d", st.Focus)
	}
	if st.Digits[0] != "" {
		t.Fatalf("expected slot 0 cleared, got %q", st.Digits[0])
	}
}

func TestFocusListenerReceivesHints(t *testing.T) {
	b := NewBuffer(4)

	var got []int
	b.OnFocus(func(index int) { got = append(got, index) })

	b.SetDigit(0, "1")
	b.SetDigit(1, "2")
	b.SetDigit(3, "9")
	b.Backspace(2)
	b.Clear()

	want := []int{1, 2, 1, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected focus hints %v, got %v", want, got)
	}
}

func TestClearResetsAllSlots(t *testing.T) {
	b := NewBuffer(6)
	fill(t, b, "987654")

	st := b.Clear()
	if b.Filled() != 0 {
		t.Fatalf("expected empty buffer, got %d filled", b.Filled())
	}
	if st.Focus != 0 {
		t.Fatalf("expected focus on first slot after clear, got %d", st.Focus)
	}
	for i, d := range st.Digits {
		if d != "" {
			t.Fatalf("slot %d not cleared: %q", i, d)
		}
	}
}

func TestNewBufferDefaultsLength(t *testing.T) {
	if got := NewBuffer(0).Len(); got != DefaultLength {
		t.Fatalf("expected default length %d, got %d", DefaultLength, got)
	}
}
