package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "unknown field",
			code:    "S001",
			wantMsg: "Store field not initialised",
			wantCat: CategoryRuntime,
		},
		{
			name:    "history not configured",
			code:    "S002",
			wantMsg: "Undo/redo used without enabling it",
			wantCat: CategoryConfig,
		},
		{
			name:    "storage error",
			code:    "S011",
			wantMsg: "Durable storage unavailable",
			wantCat: CategoryStorage,
		},
		{
			name:    "unknown error code",
			code:    "S999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestStoreError_Error(t *testing.T) {
	err := New("S001").WithField("theme")
	want := `S001: Store field not initialised (field "theme")`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	plain := &StoreError{Message: "test error"}
	if plain.Error() != "test error" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "test error")
	}

	wrapped := New("S011").Wrap(fmt.Errorf("disk full"))
	if !strings.HasSuffix(wrapped.Error(), ": disk full") {
		t.Errorf("Error() = %q, want cause suffix", wrapped.Error())
	}
}

func TestStoreError_IsAndUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := fmt.Errorf("outer: %w", New("S011").Wrap(cause))

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if !stderrors.Is(err, New("S011")) {
		t.Error("errors.Is should match by code")
	}
	if stderrors.Is(err, New("S001")) {
		t.Error("errors.Is should not match a different code")
	}
	if !HasCode(err, "S011") {
		t.Error("HasCode should report S011")
	}
	if HasCode(err, "S002") {
		t.Error("HasCode should not report S002")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "S011") != nil {
		t.Error("FromError(nil) should be nil")
	}

	se := New("S001")
	if FromError(se, "S011") != se {
		t.Error("FromError should return an existing StoreError unchanged")
	}

	got := FromError(stderrors.New("raw"), "S011")
	if got.Code != "S011" || got.Wrapped == nil {
		t.Errorf("FromError = %+v, want code S011 with wrapped cause", got)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("S001").
		WithField("theme").
		WithSuggestion("Declare the field")

	out := err.Format()
	for _, want := range []string{
		"ERROR S001: Store field not initialised",
		"field: theme",
		"Hint: Declare the field",
		"Learn more: https://vango.dev/docs/vstore/errors/S001",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
}

func TestFormatCompactAndJSON(t *testing.T) {
	err := New("S004").WithField("ghost")

	if got, want := err.FormatCompact(), "S004: Feature references unknown field [ghost]"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}

	js := err.FormatJSON()
	for _, want := range []string{`"code":"S004"`, `"category":"config"`, `"field":"ghost"`} {
		if !strings.Contains(js, want) {
			t.Errorf("FormatJSON() missing %s in %s", want, js)
		}
	}
}

func TestLogAttrs(t *testing.T) {
	attrs := New("S010").WithField("theme").Wrap(stderrors.New("bad json")).LogAttrs()
	if len(attrs) != 8 {
		t.Fatalf("LogAttrs() len = %d, want 8: %v", len(attrs), attrs)
	}
	if attrs[5] != "theme" {
		t.Errorf("field attr = %v, want theme", attrs[5])
	}
}

func TestRegistryCodesHaveMessages(t *testing.T) {
	for _, code := range Codes() {
		tmpl, ok := Lookup(code)
		if !ok {
			t.Fatalf("Lookup(%s) failed", code)
		}
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("code %s has empty message or category", code)
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven", 10)
	for _, l := range lines {
		if len(l) > 10 {
			t.Errorf("line %q longer than width", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText of empty string should be nil")
	}
}
