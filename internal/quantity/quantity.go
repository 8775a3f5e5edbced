// Package quantity parses and formats ingredient amounts.
//
// An amount is either an exact rational number written as an integer ("2"),
// a simple fraction ("1/2"), a mixed number ("4 1/2") or a decimal ("0.25"),
// or free text ("a pinch") that is kept verbatim.
package quantity

import (
	"encoding/json"
	"math/big"
	"regexp"
	"strings"
)

var (
	integerRe  = regexp.MustCompile(`^\d+$`)
	fractionRe = regexp.MustCompile(`^(\d+)/(\d+)$`)
	mixedRe    = regexp.MustCompile(`^(\d+)\s+(\d+)/(\d+)$`)
	decimalRe  = regexp.MustCompile(`^(\d+\.\d*|\.\d+)$`)
)

// Quantity is a parsed amount. The zero value is empty free text.
type Quantity struct {
	raw string
	rat *big.Rat
}

// Parse never fails: input outside the grammar yields free text carrying s unchanged.
func Parse(s string) Quantity {
	q := Quantity{raw: s}
	t := strings.TrimSpace(s)

	switch {
	case integerRe.MatchString(t), decimalRe.MatchString(t):
		r, ok := new(big.Rat).SetString(t)
		if ok {
			q.rat = r
		}
	case fractionRe.MatchString(t):
		m := fractionRe.FindStringSubmatch(t)
		q.rat = ratio("0", m[1], m[2])
	case mixedRe.MatchString(t):
		m := mixedRe.FindStringSubmatch(t)
		q.rat = ratio(m[1], m[2], m[3])
	}
	return q
}

// ratio builds whole + num/den, or nil when den is zero.
func ratio(whole, num, den string) *big.Rat {
	w, ok1 := new(big.Int).SetString(whole, 10)
	n, ok2 := new(big.Int).SetString(num, 10)
	d, ok3 := new(big.Int).SetString(den, 10)
	if !ok1 || !ok2 || !ok3 || d.Sign() == 0 {
		return nil
	}
	r := new(big.Rat).SetFrac(n, d)
	return r.Add(r, new(big.Rat).SetInt(w))
}

// FromRat returns an exact quantity for r.
func FromRat(r *big.Rat) Quantity {
	c := new(big.Rat).Set(r)
	q := Quantity{rat: c}
	q.raw = q.String()
	return q
}

// IsFreeText reports whether the amount could not be normalized.
func (q Quantity) IsFreeText() bool {
	return q.rat == nil
}

// Raw returns the original input.
func (q Quantity) Raw() string {
	return q.raw
}

// Rat returns a copy of the exact value, or nil for free text.
func (q Quantity) Rat() *big.Rat {
	if q.rat == nil {
		return nil
	}
	return new(big.Rat).Set(q.rat)
}

// String formats exact values the way cookbooks write them: "2", "1/2",
// "4 1/2". Free text is returned as written.
func (q Quantity) String() string {
	if q.rat == nil {
		return q.raw
	}
	num := q.rat.Num()
	den := q.rat.Denom()
	if den.Cmp(big.NewInt(1)) == 0 {
		return num.String()
	}

	whole, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	frac := new(big.Int).Abs(rem).String() + "/" + den.String()
	if whole.Sign() == 0 {
		if num.Sign() < 0 {
			return "-" + frac
		}
		return frac
	}
	return whole.String() + " " + frac
}

// Equal reports whether two quantities render the same value.
func (q Quantity) Equal(o Quantity) bool {
	if q.rat == nil || o.rat == nil {
		return q.rat == nil && o.rat == nil && q.raw == o.raw
	}
	return q.rat.Cmp(o.rat) == 0
}

type jsonQuantity struct {
	Text     string `json:"text"`
	FreeText bool   `json:"free_text"`
	Num      string `json:"num,omitempty"`
	Den      string `json:"den,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (q Quantity) MarshalJSON() ([]byte, error) {
	out := jsonQuantity{Text: q.String(), FreeText: q.IsFreeText()}
	if q.rat != nil {
		out.Num = q.rat.Num().String()
		out.Den = q.rat.Denom().String()
	}
	return json.Marshal(out)
}
