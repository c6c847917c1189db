package parser

import (
	"testing"
)

type expectedBatch map[string]float64

// assertBatch compares a parsed batch against the expected name -> value mapping
func assertBatch(t *testing.T, line string, batch Batch, expected expectedBatch) {
	t.Helper()
	if batch.Len() != len(expected) {
		t.Fatalf("unexpected batch size for %q: expected %v, received %v (%v)", line, len(expected), batch.Len(), batch)
	}
	for name, value := range expected {
		v, ok := batch.Get(name)
		if !ok {
			t.Fatalf("missing measurement %q for line %q", name, line)
		}
		if v != value {
			t.Fatalf("unexpected value for %q in line %q: expected %v, received %v", name, line, value, v)
		}
	}
}

// TestParseLineLabeled tests the labeled grammar
func TestParseLineLabeled(t *testing.T) {
	cases := []struct {
		line     string
		expected expectedBatch
	}{
		{"temp:25.5", expectedBatch{"temp": 25.5}},
		{"temp=25.5,humidity:60", expectedBatch{"temp": 25.5, "humidity": 60.0}},
		{"temp : 25.5 , humidity = 60", expectedBatch{"temp": 25.5, "humidity": 60.0}},
		{"v:-3.5 w:+2", expectedBatch{"v": -3.5, "w": 2.0}},
		{"a:1,a:2", expectedBatch{"a": 2.0}},
		{"noise a:1 more noise", expectedBatch{"a": 1.0}},
	}
	for _, c := range cases {
		assertBatch(t, c.line, ParseLine(c.line), c.expected)
	}
}

// TestParseLinePositional tests the positional fallback grammar
func TestParseLinePositional(t *testing.T) {
	cases := []struct {
		line     string
		expected expectedBatch
	}{
		{"3.14", expectedBatch{"CH1": 3.14}},
		{"10,20,30", expectedBatch{"CH1": 10.0, "CH2": 20.0, "CH3": 30.0}},
		{"10 20 30", expectedBatch{"CH1": 10.0, "CH2": 20.0, "CH3": 30.0}},
		{"10;20\t30", expectedBatch{"CH1": 10.0, "CH2": 20.0, "CH3": 30.0}},
		// a non-numeric field keeps its index but contributes nothing
		{"10 xx 30", expectedBatch{"CH1": 10.0, "CH3": 30.0}},
		{"-1.5,+2.5", expectedBatch{"CH1": -1.5, "CH2": 2.5}},
		{"T=?", expectedBatch{}},
		// the first numeric substring of a field is extracted
		{"adc1", expectedBatch{"CH1": 1.0}},
	}
	for _, c := range cases {
		assertBatch(t, c.line, ParseLine(c.line), c.expected)
	}
}

// TestParseLineLabeledPriority ensures the positional grammar is never
// attempted once the labeled grammar matched at least once
func TestParseLineLabeledPriority(t *testing.T) {
	batch := ParseLine("t:1 55")
	assertBatch(t, "t:1 55", batch, expectedBatch{"t": 1.0})
	if _, ok := batch.Get("CH2"); ok {
		t.Fatal("positional grammar was applied to a line with labeled matches")
	}
}

// TestParseLineEmpty ensures blank input yields an empty batch, not an error
func TestParseLineEmpty(t *testing.T) {
	for _, line := range []string{"", "  ", "\t", "no numbers here"} {
		if batch := ParseLine(line); batch.Len() != 0 {
			t.Fatalf("expected empty batch for %q, received %v", line, batch)
		}
	}
}

// TestParseLineNoExponents ensures exponent notation is not part of the
// numeric grammar
func TestParseLineNoExponents(t *testing.T) {
	batch := ParseLine("1e5")
	assertBatch(t, "1e5", batch, expectedBatch{"CH1": 1.0})
}

// TestParseLineOrder ensures batches preserve first-appearance order
func TestParseLineOrder(t *testing.T) {
	batch := ParseLine("b:1,a:2,b:3")
	names := batch.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("unexpected name order: %v", names)
	}
	if v, _ := batch.Get("b"); v != 3.0 {
		t.Fatalf("expected last duplicate to win, received %v", v)
	}
}
