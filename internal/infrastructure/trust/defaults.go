package trust

import "github.com/productlens/backend/internal/domain"

// DefaultTable returns the built-in trust table
func DefaultTable() *Table {
	var rules []Rule
	for _, h := range knownBrandHosts {
		rules = append(rules, Rule{Pattern: h, Class: domain.TrustKnownApparelBrand})
	}
	for _, h := range majorRetailerHosts {
		rules = append(rules, Rule{Pattern: h, Class: domain.TrustMajorRetailer})
	}
	for _, h := range marketplaceHosts {
		rules = append(rules, Rule{Pattern: h, Class: domain.TrustMarketplace})
	}
	return NewTable(rules, blacklistHosts, nonCommerceHosts)
}

// knownBrandHosts are official apparel brand storefronts
var knownBrandHosts = []string{
	"nike.com", "adidas.com", "uniqlo.com", "levi.com", "gap.com",
	"jcrew.com", "bananarepublic.com", "ralphlauren.com", "patagonia.com",
	"thenorthface.com", "everlane.com", "bonobos.com", "hm.com", "zara.com",
	"newbalance.com", "converse.com", "vans.com", "allbirds.com",
	"lululemon.com", "underarmour.com", "calvinklein.us", "tommy.com",
	"columbia.com", "carhartt.com", "llbean.com", "abercrombie.com",
	"reebok.com", "puma.com", "timberland.com", "drmartens.com",
	"clarks.com", "hugoboss.com", "lacoste.com", "toddsnyder.com",
	"allenedmonds.com", "redwingshoes.com", "brooksbrothers.com",
}

// majorRetailerHosts double as the planner's retailer tiers, in this order
var majorRetailerHosts = []string{
	"amazon.com", "nordstrom.com", "macys.com", "target.com", "walmart.com",
	"kohls.com", "zappos.com", "bloomingdales.com", "saksfifthavenue.com",
	"dickssportinggoods.com", "footlocker.com", "rei.com",
}

var marketplaceHosts = []string{
	"ebay.com", "etsy.com", "poshmark.com", "mercari.com", "depop.com",
	"grailed.com", "stockx.com", "goat.com", "therealreal.com",
}

// blacklistHosts are known irrelevant or broken result domains
var blacklistHosts = []string{
	"wikipedia.org", "wikihow.com", "aliexpress.com", "alibaba.com",
	"dhgate.com", "wish.com", "temu.com", "fandom.com", "imdb.com",
}

var nonCommerceHosts = []string{
	"youtube.com", "youtu.be", "vimeo.com", "tiktok.com", "instagram.com",
	"facebook.com", "twitter.com", "x.com", "pinterest.com", "reddit.com",
	"quora.com", "medium.com", "substack.com", "wordpress.com",
	"blogspot.com", "tumblr.com", "styleforum.net",
}
