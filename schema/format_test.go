package schema

import (
	"testing"
	"time"
)

func TestFormatValue_Nil(t *testing.T) {
	for _, vt := range []ValueType{TypeText, TypeNumber, TypeDate, TypeBoolean, TypeCurrency, TypePercentage} {
		if got := FormatValue(nil, vt, ""); got != "" {
			t.Errorf("FormatValue(nil, %s) = %q, want empty", vt, got)
		}
	}
}

func TestDateLayout(t *testing.T) {
	cases := []struct {
		pattern string
		want    string
	}{
		{"", "2006-01-02"},
		{"YYYY-MM-DD", "2006-01-02"},
		{"DD/MM/YYYY", "02/01/2006"},
		{"YYYY-MM-DD HH:mm:ss", "2006-01-02 15:04:05"},
		{"MM/DD/YYYY", "01/02/2006"},
	}
	for _, c := range cases {
		if got := DateLayout(c.pattern); got != c.want {
			t.Errorf("DateLayout(%q) = %q, want %q", c.pattern, got, c.want)
		}
	}
}

func TestFormatValue_Date(t *testing.T) {
	ref := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	if got := FormatValue(ref, TypeDate, ""); got != "2025-03-14" {
		t.Errorf("date default = %q", got)
	}
	if got := FormatValue(ref, TypeDate, "DD/MM/YYYY"); got != "14/03/2025" {
		t.Errorf("date DD/MM/YYYY = %q", got)
	}
	if got := FormatValue("2025-03-14T09:30:00Z", TypeDate, "YYYY-MM-DD HH:mm"); got != "2025-03-14 09:30" {
		t.Errorf("date from RFC3339 = %q", got)
	}
	// timestamp JSON en millisecondes
	if got := FormatValue(float64(1741944600000), TypeDate, ""); got == "" {
		t.Error("date from unix millis should not be empty")
	}
	if got := FormatValue("not a date", TypeDate, ""); got != "" {
		t.Errorf("unparseable date = %q, want empty", got)
	}
}

func TestFormatValue_Currency(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{1234.5, "$1,234.50"},
		{float64(0), "$0.00"},
		{-1234.5, "-$1,234.50"},
		{1234567.891, "$1,234,567.89"},
		{"€1234.5", "€1,234.50"},
		{"£ 99", "£99.00"},
		{"1,234.50", "$1,234.50"},
		{"abc", "$0.00"}, // illisible => 0
	}
	for _, c := range cases {
		if got := FormatValue(c.in, TypeCurrency, ""); got != c.want {
			t.Errorf("currency(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatValue_Percentage(t *testing.T) {
	if got := FormatValue(42.25, TypePercentage, ""); got != "42.2%" && got != "42.3%" {
		t.Errorf("percent(42.25) = %q", got)
	}
	if got := FormatValue("85%", TypePercentage, ""); got != "85.0%" {
		t.Errorf("percent(\"85%%\") = %q", got)
	}
	if got := FormatValue("oops", TypePercentage, ""); got != "0.0%" {
		t.Errorf("percent bad input = %q, want 0.0%%", got)
	}
}

func TestFormatValue_Boolean(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{true, "Yes"},
		{false, "No"},
		{"true", "Yes"},
		{"YES", "Yes"},
		{"1", "Yes"},
		{"0", "No"},
		{float64(1), "Yes"},
		{float64(0), "No"},
		{"whatever", "No"},
	}
	for _, c := range cases {
		if got := FormatValue(c.in, TypeBoolean, ""); got != c.want {
			t.Errorf("bool(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatValue_Number(t *testing.T) {
	if got := FormatValue(8.5, TypeNumber, ""); got != "8.5" {
		t.Errorf("number(8.5) = %q", got)
	}
	if got := FormatValue("1,200", TypeNumber, ""); got != "1200" {
		t.Errorf("number(\"1,200\") = %q", got)
	}
	if got := FormatValue("garbage", TypeNumber, ""); got != "0" {
		t.Errorf("number bad input = %q, want 0", got)
	}
}

func TestFormatValue_Text(t *testing.T) {
	if got := FormatValue("hello", TypeText, ""); got != "hello" {
		t.Errorf("text = %q", got)
	}
	// les gros identifiants ne passent pas en notation scientifique
	if got := FormatValue(float64(9007199254740), TypeText, ""); got != "9007199254740" {
		t.Errorf("big number as text = %q", got)
	}
}

func TestGroupThousands(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1", "1"},
		{"123", "123"},
		{"1234", "1,234"},
		{"1234567", "1,234,567"},
	}
	for _, c := range cases {
		if got := groupThousands(c.in); got != c.want {
			t.Errorf("groupThousands(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
