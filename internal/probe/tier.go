// Package probe decides which smart-pointer facility the active C++
// toolchain supports.
//
// The answer is advisory: any failure to run the compiler degrades to
// TierNone and the header is still generated.
package probe

import (
	"fmt"
	"strings"

	"hdrgen/internal/subst"
)

// Tier is a smart-pointer facility.
type Tier string

const (
	TierSTD   Tier = "std"   // std::shared_ptr, <memory>
	TierTR1   Tier = "tr1"   // std::tr1::shared_ptr, <tr1/memory>
	TierBoost Tier = "boost" // boost::shared_ptr, <boost/shared_ptr.hpp>
	TierNone  Tier = "none"
)

// Tiers lists the facilities that map to a header flag.
var Tiers = []Tier{TierSTD, TierTR1, TierBoost}

// DefaultOrder is the probe order used when none is configured. The
// modern facility is tried first.
var DefaultOrder = []Tier{TierSTD, TierTR1}

// ParseTier parses a tier name.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToLower(strings.TrimSpace(s))); t {
	case TierSTD, TierTR1, TierBoost, TierNone:
		return t, nil
	}
	return "", fmt.Errorf("unknown capability tier %q (valid: std, tr1, boost, none)", s)
}

// ParseOrder parses a probe order. "none" is not a probe target.
func ParseOrder(names []string) ([]Tier, error) {
	order := make([]Tier, 0, len(names))
	seen := make(map[Tier]bool, len(names))
	for _, name := range names {
		t, err := ParseTier(name)
		if err != nil {
			return nil, err
		}
		if t == TierNone {
			return nil, fmt.Errorf("tier %q cannot be probed", name)
		}
		if seen[t] {
			return nil, fmt.Errorf("tier %q listed twice in probe order", name)
		}
		seen[t] = true
		order = append(order, t)
	}
	return order, nil
}

// Macro returns the preprocessor flag for t, or "" for TierNone.
func (t Tier) Macro() string {
	switch t {
	case TierSTD:
		return "HAVE_STD_SHARED_PTR"
	case TierTR1:
		return "HAVE_TR1_SHARED_PTR"
	case TierBoost:
		return "HAVE_BOOST_SHARED_PTR"
	}
	return ""
}

// Placeholder returns the template token of t's flag, e.g. @HAVE_STD_SHARED_PTR@.
func (t Tier) Placeholder() string {
	if m := t.Macro(); m != "" {
		return "@" + m + "@"
	}
	return ""
}

// Define renders the line that marks t as available.
func (t Tier) Define() string {
	return "#define " + t.Macro() + "\t(1)"
}

// Undef renders the line that marks t as unavailable.
func (t Tier) Undef() string {
	return "#undef " + t.Macro()
}

// Macros renders the placeholder values for a selected tier: the selected
// flag is defined and every other flag is undefined. TierNone undefines all.
func Macros(selected Tier) subst.PlaceholderMap {
	m := make(map[string]string, len(Tiers))
	for _, t := range Tiers {
		if t == selected {
			m[t.Placeholder()] = t.Define()
		} else {
			m[t.Placeholder()] = t.Undef()
		}
	}
	return subst.MustPlaceholderMap(m)
}

// source is the translation unit compiled to test a facility.
func (t Tier) source() string {
	switch t {
	case TierSTD:
		return "#include <memory>\nint main() {\n  std::shared_ptr<int> p;\n  return 0;\n}\n"
	case TierTR1:
		return "#include <tr1/memory>\nint main() {\n  std::tr1::shared_ptr<int> p;\n  return 0;\n}\n"
	case TierBoost:
		return "#include <boost/shared_ptr.hpp>\nint main() {\n  boost::shared_ptr<int> p;\n  return 0;\n}\n"
	}
	return ""
}
