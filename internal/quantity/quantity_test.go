package quantity

import (
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"pgregory.net/rapid"
)

func TestParse_Canonical(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2", "2"},
		{"1/2", "1/2"},
		{"4 1/2", "4 1/2"},
		{"  3/4 ", "3/4"},
		{"0.25", "1/4"},
		{"4.5", "4 1/2"},
		{"2.0", "2"},
		{"6/4", "1 1/2"},
		{"1 2/4", "1 1/2"},
		{"10", "10"},
	}
	for _, tc := range cases {
		q := Parse(tc.in)
		if q.IsFreeText() {
			t.Errorf("Parse(%q) fell back to free text", tc.in)
			continue
		}
		if got := q.String(); got != tc.want {
			t.Errorf("Parse(%q).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParse_FreeTextFallback(t *testing.T) {
	for _, in := range []string{"a pinch", "1/0", "3 1/0", "1/2/3", "", "  ", "two", "1-2", "-1", "½"} {
		q := Parse(in)
		if !q.IsFreeText() {
			t.Errorf("Parse(%q) = %v, want free text", in, q.Rat())
		}
		if q.String() != in {
			t.Errorf("Parse(%q).String() = %q, want original", in, q.String())
		}
		if q.Raw() != in {
			t.Errorf("Parse(%q).Raw() = %q", in, q.Raw())
		}
	}
}

func TestParse_ExactValue(t *testing.T) {
	q := Parse("4 1/2")
	if q.Rat().Cmp(big.NewRat(9, 2)) != 0 {
		t.Errorf("rat = %v, want 9/2", q.Rat())
	}
	// Rat returns a copy.
	q.Rat().SetInt64(100)
	if q.String() != "4 1/2" {
		t.Errorf("quantity mutated through Rat(): %q", q.String())
	}
}

func TestFromRat(t *testing.T) {
	q := FromRat(big.NewRat(7, 4))
	if q.String() != "1 3/4" || q.Raw() != "1 3/4" {
		t.Errorf("FromRat = %q raw %q", q.String(), q.Raw())
	}
}

func TestEqual(t *testing.T) {
	if !Parse("0.5").Equal(Parse("1/2")) {
		t.Error("0.5 should equal 1/2")
	}
	if Parse("a pinch").Equal(Parse("a dash")) {
		t.Error("different free text should not be equal")
	}
	if Parse("1").Equal(Parse("one")) {
		t.Error("exact and free text should not be equal")
	}
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(Parse("4 1/2"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"text":"4 1/2","free_text":false,"num":"9","den":"2"}` {
		t.Errorf("json = %s", data)
	}
	data, _ = json.Marshal(Parse("a pinch"))
	if string(data) != `{"text":"a pinch","free_text":true}` {
		t.Errorf("json = %s", data)
	}
}

func TestProperty_MixedNumbersRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		den := rapid.IntRange(2, 64).Draw(t, "den")
		num := rapid.IntRange(1, den-1).Draw(t, "num")
		whole := rapid.IntRange(0, 1000).Draw(t, "whole")

		r := big.NewRat(int64(num), int64(den))
		canonical := r.Num().String() + "/" + r.Denom().String()
		in := canonical
		if whole > 0 {
			in = fmt.Sprintf("%d %s", whole, canonical)
		}

		if got := Parse(in).String(); got != in {
			t.Fatalf("format(parse(%q)) = %q", in, got)
		}
	})
}

func TestProperty_IntegersRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 1_000_000).Draw(t, "n")
		in := fmt.Sprint(n)
		if got := Parse(in).String(); got != in {
			t.Fatalf("format(parse(%q)) = %q", in, got)
		}
	})
}

func TestProperty_LettersAreFreeText(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringMatching(`[a-z][a-z ]{0,20}`).Draw(t, "s")
		q := Parse(s)
		if !q.IsFreeText() || q.String() != s {
			t.Fatalf("Parse(%q) = %q free=%v", s, q.String(), q.IsFreeText())
		}
	})
}
