package services

import "testing"

func TestExtractSummary(t *testing.T) {
	cases := []struct {
		name   string
		reply  string
		marker string
		want   string
	}{
		{
			name:   "marker line discarded",
			reply:  "Отлично, вот итог.\nSUMMARY:\n- сделал X\n- начал Y",
			marker: "sum",
			want:   "- сделал X\n- начал Y",
		},
		{
			name:   "marker case-insensitive",
			reply:  "sum:\nтекст отчёта",
			marker: "SUM",
			want:   "текст отчёта",
		},
		{
			name:   "no marker falls back to whole reply",
			reply:  "  просто ответ ассистента  ",
			marker: "sum",
			want:   "просто ответ ассистента",
		},
		{
			name:   "only first marker splits",
			reply:  "SUM:\nитог с упоминанием sum внутри",
			marker: "sum",
			want:   "итог с упоминанием sum внутри",
		},
		{
			name:   "empty marker uses default",
			reply:  "думаю...\nSUMMARY\nготово",
			marker: "",
			want:   "готово",
		},
		{
			name:   "marker on last line yields empty summary",
			reply:  "всё обсудили\nSUM:",
			marker: "sum",
			want:   "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractSummary(tc.reply, tc.marker); got != tc.want {
				t.Errorf("ExtractSummary = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractSummary_Idempotent(t *testing.T) {
	reply := "размышления\nSUMMARY:\n- пункт один\n- пункт два"
	once := ExtractSummary(reply, "sum")
	twice := ExtractSummary(once, "sum")
	if once != twice {
		t.Errorf("not idempotent: %q then %q", once, twice)
	}
}

func TestContainsMarker(t *testing.T) {
	if !ContainsMarker("вот SUMMARY ниже", "sum") {
		t.Errorf("marker not found case-insensitively")
	}
	if ContainsMarker("обычный ответ", "sum") {
		t.Errorf("marker found in plain reply")
	}
	if !ContainsMarker("SUM", "") {
		t.Errorf("empty marker should use default")
	}
}
