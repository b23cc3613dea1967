package domain

// TrustClass is the trust/priority score assigned to a result host
type TrustClass int

const (
	TrustOther             TrustClass = 10
	TrustMarketplace       TrustClass = 30
	TrustMajorRetailer     TrustClass = 50
	TrustKnownApparelBrand TrustClass = 90
	TrustBrandOfficial     TrustClass = 100
)

// String returns the class name used in config files and logs
func (c TrustClass) String() string {
	switch c {
	case TrustBrandOfficial:
		return "brand_official"
	case TrustKnownApparelBrand:
		return "known_brand"
	case TrustMajorRetailer:
		return "major_retailer"
	case TrustMarketplace:
		return "marketplace"
	case TrustOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseTrustClass converts a class name back to its TrustClass
func ParseTrustClass(s string) (TrustClass, bool) {
	switch s {
	case "brand_official":
		return TrustBrandOfficial, true
	case "known_brand":
		return TrustKnownApparelBrand, true
	case "major_retailer":
		return TrustMajorRetailer, true
	case "marketplace":
		return TrustMarketplace, true
	case "other":
		return TrustOther, true
	}
	return 0, false
}
