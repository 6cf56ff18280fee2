package selector

import "strings"

// Domain rule sets. Dynamic sites need JS rendering or fight scrapers;
// static sites serve full content over plain HTTP. Matching is by suffix,
// so "booking.com" also covers "www.booking.com". Entries starting with a
// dot (".gov") match any registrable domain under that TLD.
var knownDynamic = []string{
	// booking platforms
	"booking.com",
	"airbnb.com",
	"expedia.com",
	"kayak.com",
	"skyscanner.com",
	"agoda.com",
	"hotels.com",
	"trivago.com",
	"vrbo.com",
	// airlines
	"delta.com",
	"united.com",
	"aa.com",
	"lufthansa.com",
	"ryanair.com",
	"easyjet.com",
	// hotel chains and rentals
	"marriott.com",
	"hilton.com",
	"hyatt.com",
	"hertz.com",
	"avis.com",
	// review and social, heavy client rendering
	"tripadvisor.com",
	"instagram.com",
	"facebook.com",
	"tiktok.com",
	"x.com",
	"twitter.com",
}

var knownStatic = []string{
	"wikipedia.org",
	"wikivoyage.org",
	"wikitravel.org",
	"wikimedia.org",
	"britannica.com",
	"lonelyplanet.com",
	"atlasobscura.com",
	"timeout.com",
	"nationalgeographic.com",
	"ricksteves.com",
	".gov",
	".gov.uk",
	".edu",
	".museum",
}

// Class is the static classification of a target domain.
type Class int

const (
	ClassUnknown Class = iota
	ClassStatic
	ClassDynamic
)

func (c Class) String() string {
	switch c {
	case ClassStatic:
		return "static"
	case ClassDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Classify matches a lowercased domain against the rule sets. Dynamic wins
// over static when both match, since a JS-walled page on a static TLD still
// needs the browser.
func Classify(domain string) Class {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return ClassUnknown
	}
	if matchesAny(domain, knownDynamic) {
		return ClassDynamic
	}
	if matchesAny(domain, knownStatic) {
		return ClassStatic
	}
	return ClassUnknown
}

func matchesAny(domain string, rules []string) bool {
	for _, rule := range rules {
		if strings.HasPrefix(rule, ".") {
			if strings.HasSuffix(domain, rule) {
				return true
			}
			continue
		}
		if domain == rule || strings.HasSuffix(domain, "."+rule) {
			return true
		}
	}
	return false
}

// StaticDomains returns the known-static rule set for guidance payloads.
func StaticDomains() []string {
	out := make([]string, len(knownStatic))
	copy(out, knownStatic)
	return out
}

// DynamicDomains returns the known-dynamic rule set for guidance payloads.
func DynamicDomains() []string {
	out := make([]string, len(knownDynamic))
	copy(out, knownDynamic)
	return out
}
