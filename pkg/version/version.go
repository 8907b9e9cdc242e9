// SPDX-License-Identifier: MPL-2.0

// Package version orders artifact version strings the way Maven repositories do.
//
// A version is split into items on '.' and '-' and on every transition between
// digits and letters. Numeric items compare numerically, qualifiers compare by a
// fixed rank:
//
//	alpha < beta < milestone < rc == cr < snapshot < "" == ga == final == release < sp
//
// Unknown qualifiers rank after all known ones and compare lexically among
// themselves. Trailing zero and release items are ignored, so "1.0", "1" and
// "1.0.0-ga" are equal.
//
// Callers that only need an ordering should depend on Comparator.
package version

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformed is the sentinel wrapped by MalformedError.
var ErrMalformed = errors.New("malformed version")

type (
	// Comparator is a total order over version strings.
	// Compare returns a negative number when a sorts before b, zero when they
	// are equivalent and a positive number when a is later.
	Comparator interface {
		Compare(a, b string) (int, error)
	}

	// Maven is the default Comparator.
	Maven struct{}

	// MalformedError is returned for version strings that cannot be ordered.
	MalformedError struct {
		Version string
		Reason  string
	}

	// Version is a parsed version string.
	Version struct {
		raw   string
		items listItem
	}
)

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed version %q: %s", e.Version, e.Reason)
}

// Unwrap returns ErrMalformed for errors.Is compatibility.
func (e *MalformedError) Unwrap() error { return ErrMalformed }

// Compare implements Comparator.
func (Maven) Compare(a, b string) (int, error) {
	va, err := Parse(a)
	if err != nil {
		return 0, err
	}
	vb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return va.Compare(vb), nil
}

// Parse parses s. Empty strings and strings containing whitespace or control
// characters are rejected with a MalformedError.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, &MalformedError{Version: s, Reason: "empty version"}
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return Version{}, &MalformedError{Version: s, Reason: "contains whitespace or control characters"}
		}
	}
	return Version{raw: s, items: parseItems(s)}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original version text.
func (v Version) String() string { return v.raw }

// Compare orders v against other.
func (v Version) Compare(other Version) int {
	return v.items.compare(other.items)
}

// Later reports whether a is strictly later than b according to c.
func Later(c Comparator, a, b string) (bool, error) {
	n, err := c.Compare(a, b)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Max returns the latest of versions according to c. It returns an empty
// string for an empty input.
func Max(c Comparator, versions ...string) (string, error) {
	if len(versions) == 0 {
		return "", nil
	}
	best := versions[0]
	for _, v := range versions[1:] {
		later, err := Later(c, v, best)
		if err != nil {
			return "", err
		}
		if later {
			best = v
		}
	}
	return best, nil
}

// Sort orders versions ascending according to c. The first comparison error
// stops the sort and is returned; the slice order is then unspecified.
func Sort(c Comparator, versions []string) error {
	var sortErr error
	slices.SortStableFunc(versions, func(a, b string) int {
		if sortErr != nil {
			return 0
		}
		n, err := c.Compare(a, b)
		if err != nil {
			sortErr = err
		}
		return n
	})
	return sortErr
}

// qualifiers lists known qualifiers in ascending rank. The empty string is the
// release rank.
var qualifiers = []string{"alpha", "beta", "milestone", "rc", "snapshot", "", "sp"}

var qualifierAliases = map[string]string{
	"ga":      "",
	"final":   "",
	"release": "",
	"cr":      "rc",
}

var releaseRank = rank("")

// rank maps a qualifier to a string whose lexical order is the qualifier order.
func rank(q string) string {
	if i := slices.Index(qualifiers, q); i >= 0 {
		return strconv.Itoa(i)
	}
	return strconv.Itoa(len(qualifiers)) + "-" + q
}

type (
	item interface {
		// compare orders the receiver against other; other may be nil, meaning
		// the item is absent on the other side.
		compare(other item) int
		isNull() bool
	}

	intItem    string // decimal digits, leading zeros stripped
	stringItem string // normalized qualifier
	listItem   []item
)

func newIntItem(digits string) intItem {
	digits = strings.TrimLeft(digits, "0")
	return intItem(digits)
}

func newStringItem(s string, followedByDigit bool) stringItem {
	if followedByDigit && len(s) == 1 {
		switch s {
		case "a":
			s = "alpha"
		case "b":
			s = "beta"
		case "m":
			s = "milestone"
		}
	}
	if alias, ok := qualifierAliases[s]; ok {
		s = alias
	}
	return stringItem(s)
}

func (i intItem) isNull() bool { return i == "" }

func (i intItem) compare(other item) int {
	switch o := other.(type) {
	case nil:
		if i.isNull() {
			return 0
		}
		return 1
	case intItem:
		if len(i) != len(o) {
			if len(i) < len(o) {
				return -1
			}
			return 1
		}
		return strings.Compare(string(i), string(o))
	default:
		// Numbers sort after qualifiers and sub-lists.
		return 1
	}
}

func (s stringItem) isNull() bool { return rank(string(s)) == releaseRank }

func (s stringItem) compare(other item) int {
	switch o := other.(type) {
	case nil:
		return strings.Compare(rank(string(s)), releaseRank)
	case stringItem:
		return strings.Compare(rank(string(s)), rank(string(o)))
	default:
		return -1
	}
}

func (l listItem) isNull() bool { return len(l) == 0 }

func (l listItem) compare(other item) int {
	switch o := other.(type) {
	case nil:
		if len(l) == 0 {
			return 0
		}
		return l[0].compare(nil)
	case intItem:
		return -1
	case stringItem:
		return 1
	case listItem:
		for i := range max(len(l), len(o)) {
			var left, right item
			if i < len(l) {
				left = l[i]
			}
			if i < len(o) {
				right = o[i]
			}
			var n int
			if left == nil {
				n = -right.compare(nil)
			} else {
				n = left.compare(right)
			}
			if n != 0 {
				return n
			}
		}
		return 0
	default:
		return 0
	}
}

// normalize drops trailing null items, looking through nested lists.
func (l listItem) normalize() listItem {
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].isNull() {
			l = slices.Delete(l, i, i+1)
			continue
		}
		if _, ok := l[i].(listItem); !ok {
			break
		}
	}
	return l
}

// parseItems builds the item tree. Each '-' and each digit/letter transition
// opens a nested list; '.' separates items within the current list.
func parseItems(v string) listItem {
	v = strings.ToLower(v)

	// Lists are built bottom-up: stack holds the open lists from the root down.
	stack := []listItem{{}}
	add := func(it item) {
		stack[len(stack)-1] = append(stack[len(stack)-1], it)
	}
	token := func(s string, digit bool) item {
		if digit {
			return newIntItem(s)
		}
		return newStringItem(s, false)
	}

	isDigit := false
	start := 0
	for i := 0; i < len(v); i++ {
		c := v[i]
		switch {
		case c == '.':
			if i == start {
				add(newIntItem("0"))
			} else {
				add(token(v[start:i], isDigit))
			}
			start = i + 1
		case c == '-':
			if i == start {
				add(newIntItem("0"))
			} else {
				add(token(v[start:i], isDigit))
			}
			start = i + 1
			stack = append(stack, listItem{})
		case c >= '0' && c <= '9':
			if !isDigit && i > start {
				add(newStringItem(v[start:i], true))
				start = i
				stack = append(stack, listItem{})
			}
			isDigit = true
		default:
			if isDigit && i > start {
				add(newIntItem(v[start:i]))
				start = i
				stack = append(stack, listItem{})
			}
			isDigit = false
		}
	}
	if len(v) > start {
		add(token(v[start:], isDigit))
	}

	// Close nested lists from the innermost outwards.
	for len(stack) > 1 {
		child := stack[len(stack)-1].normalize()
		stack = stack[:len(stack)-1]
		add(child)
	}
	return stack[0].normalize()
}
