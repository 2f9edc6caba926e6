package identity

import (
	"strings"
)

// NoMatch is the sentinel raw value used when catalog search finds nothing
// or the lookup fails. The pipeline treats it identically to "no photo
// supplied".
const NoMatch = "-1"

// Unknown-identity markers. A ProductIdentity is either fully resolved or
// carries both of these; partial resolution is not a valid state.
const (
	UnknownProductName = "모델명을 찾을 수 없습니다"
	UnknownModelCode   = "없음"
)

// modelCodePrefixes is the set of first characters that mark a label segment
// as a model code.
const modelCodePrefixes = "WDRrft"

// ProductIdentity is a parsed catalog label: the human-readable product name
// and the manufacturer model code.
type ProductIdentity struct {
	ProductName string
	ModelCode   string
}

// Unknown reports whether the identity is the explicit unknown marker pair.
func (p ProductIdentity) Unknown() bool {
	return p.ProductName == UnknownProductName && p.ModelCode == UnknownModelCode
}

// unknownIdentity is returned for every unparseable input.
func unknownIdentity() ProductIdentity {
	return ProductIdentity{ProductName: UnknownProductName, ModelCode: UnknownModelCode}
}

// ParseProductInfo splits a raw catalog-match label on underscores and takes
// the first segment starting with a model-code prefix as the model code; the
// preceding segments, re-joined, form the product name. The sentinel value,
// a label with no code segment, or a code segment with nothing before it all
// yield the unknown identity. Pure; never fails.
func ParseProductInfo(raw string) ProductIdentity {
	if raw == "" || raw == NoMatch {
		return unknownIdentity()
	}

	segments := strings.Split(raw, "_")
	for i, seg := range segments {
		if seg == "" || !strings.ContainsRune(modelCodePrefixes, rune(seg[0])) {
			continue
		}
		if i == 0 {
			// A model code with no product name before it would be a
			// partially resolved identity; report unknown instead.
			return unknownIdentity()
		}
		return ProductIdentity{
			ProductName: strings.Join(segments[:i], "_"),
			ModelCode:   seg,
		}
	}

	return unknownIdentity()
}
