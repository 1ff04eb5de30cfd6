package services

import "testing"

func TestConfirmationMatcher_Defaults(t *testing.T) {
	m := NewConfirmationMatcher(nil)

	cases := []struct {
		in   string
		want bool
	}{
		{"да", true},
		{"Да", true},
		{"ДА!!!", true},
		{"Да, всё верно!", true},
		{"да все верно", true},
		{"всё верно", true},
		{"  подтверждаю  ", true},
		{"Ок.", true},
		{"ok", true},
		{"YES", true},
		{"да,   всё	верно", true}, // tab and run of spaces collapse

		{"", false},
		{"   ", false},
		{"да пойду обедать", false},
		{"ну да, наверное, но давай поправим", false},
		{"не верно", false},
		{"okay then", false},
		{"!!!", false},
	}
	for _, tc := range cases {
		if got := m.IsConfirmation(tc.in); got != tc.want {
			t.Errorf("IsConfirmation(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestConfirmationMatcher_CustomPhrases(t *testing.T) {
	m := NewConfirmationMatcher([]string{"Принято!", "го", "   "})

	if !m.IsConfirmation("принято") {
		t.Errorf("custom phrase not matched after normalization")
	}
	if !m.IsConfirmation("ГО!!!") {
		t.Errorf("custom phrase not matched case-insensitively")
	}
	// Defaults must not leak in when a custom set is supplied.
	if m.IsConfirmation("да") {
		t.Errorf("default phrase matched with custom set")
	}
	// The whitespace-only phrase normalizes to "" and must be dropped.
	if m.IsConfirmation("") {
		t.Errorf("empty input counted as confirmation")
	}
}

func TestConfirmationMatcher_YoFolding(t *testing.T) {
	m := NewConfirmationMatcher([]string{"всё чётко"})
	if !m.IsConfirmation("все четко") {
		t.Errorf("ё and е variants should match both ways")
	}
}
