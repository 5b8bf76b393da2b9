package validate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/extract"
	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// academicSuffixes are treated as primary when no list matched
var academicSuffixes = []string{".gov", ".edu", ".ac.uk"}

// AuthorityClassifier ranks citation URLs into authority tiers
type AuthorityClassifier struct {
	overrides map[string]model.AuthorityTier
	domains   map[string]model.AuthorityTier
	paths     []pathRule
}

type pathRule struct {
	re   *regexp.Regexp
	tier model.AuthorityTier
}

// NewAuthorityClassifier creates a classifier; nil config uses the defaults.
// Invalid path patterns are skipped.
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}

	a := &AuthorityClassifier{
		overrides: make(map[string]model.AuthorityTier, len(config.DomainMap)),
		domains:   make(map[string]model.AuthorityTier),
	}
	for host, tier := range config.DomainMap {
		a.overrides[strings.ToLower(host)] = parseTierString(tier)
	}
	// secondary first so a domain listed twice ends up primary
	for _, d := range config.SecondaryDomains {
		a.domains[strings.ToLower(d)] = model.TierSecondary
	}
	for _, d := range config.PrimaryDomains {
		a.domains[strings.ToLower(d)] = model.TierPrimary
	}
	for _, p := range config.PathPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		a.paths = append(a.paths, pathRule{re: re, tier: parseTierString(p.Tier)})
	}

	return a
}

// Classify returns the tier of rawURL. The most specific listed domain wins;
// unparseable URLs are tertiary.
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return model.TierTertiary
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	if tier, ok := a.overrides[host]; ok {
		return tier
	}

	for h := host; h != ""; h = parentDomain(h) {
		if tier, ok := a.domains[h]; ok {
			return tier
		}
	}

	for _, rule := range a.paths {
		if rule.re.MatchString(parsed.Path) {
			return rule.tier
		}
	}

	for _, suffix := range academicSuffixes {
		if strings.HasSuffix(host, suffix) {
			return model.TierPrimary
		}
	}
	return model.TierTertiary
}

// Annotate fills Domain and Authority on every source in place
func (a *AuthorityClassifier) Annotate(sources []model.SourceCitation) {
	for i := range sources {
		if sources[i].Domain == "" || sources[i].Domain == "unknown" {
			sources[i].Domain = extract.Domain(sources[i].URL)
		}
		sources[i].Authority = a.Classify(sources[i].URL)
	}
}

// parentDomain strips the leftmost label: "apps.who.int" -> "who.int" -> "int" -> ""
func parentDomain(host string) string {
	_, rest, ok := strings.Cut(host, ".")
	if !ok {
		return ""
	}
	return rest
}

func parseTierString(tier string) model.AuthorityTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
