package query

import (
	"strings"
	"testing"

	"github.com/fedsearch/fedsearch/pkg/core"
)

func newRequest(q string) core.SearchRequest {
	return core.NewSearchRequest(q, "test", core.VerticalWeb)
}

func TestComposeDefaultScope(t *testing.T) {
	composed := Compose(newRequest("benefits"), core.TenantScope{})

	want := "(benefits) " + DefaultScope
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeTenantDomains(t *testing.T) {
	scope := core.TenantScope{Domains: []string{"usa.gov"}}
	composed := Compose(newRequest("benefits"), scope)

	want := "(benefits) (site:usa.gov)"
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeScopeIDsAndDomains(t *testing.T) {
	scope := core.TenantScope{
		ScopeIDs: []string{"PatentClass"},
		Domains:  []string{"usa.gov", "irs.gov"},
	}
	composed := Compose(newRequest("benefits"), scope)

	want := "(benefits) (scopeid:PatentClass OR site:usa.gov OR site:irs.gov)"
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeExplicitSiteTokenSuppressesScoping(t *testing.T) {
	scope := core.TenantScope{Domains: []string{"usa.gov"}}
	composed := Compose(newRequest("benefits site:irs.gov"), scope)

	want := "(benefits site:irs.gov)"
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeKeywordsSurviveSiteToken(t *testing.T) {
	scope := core.TenantScope{
		Domains:       []string{"usa.gov"},
		ScopeKeywords: []string{"taxes", "refund"},
	}
	composed := Compose(newRequest("forms site:irs.gov"), scope)

	want := `(forms site:irs.gov) ("taxes" OR "refund")`
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeNegativeSiteTokenSuppressesScoping(t *testing.T) {
	scope := core.TenantScope{Domains: []string{"usa.gov"}}
	composed := Compose(newRequest("benefits -site:irs.gov"), scope)

	if strings.Contains(composed.Text, "site:usa.gov") {
		t.Errorf("tenant domains should be suppressed, got %q", composed.Text)
	}
	if strings.Contains(composed.Text, DefaultScope) {
		t.Errorf("default scope should be suppressed, got %q", composed.Text)
	}
}

func TestComposeSiteLimits(t *testing.T) {
	scope := core.TenantScope{Domains: []string{"usa.gov"}}
	req := newRequest("benefits")
	req.SiteLimits = "benefits.usa.gov evil.com"

	composed := Compose(req, scope)

	if len(composed.MatchingSiteLimits) != 1 || composed.MatchingSiteLimits[0] != "benefits.usa.gov" {
		t.Errorf("expected matching [benefits.usa.gov], got %v", composed.MatchingSiteLimits)
	}
	if len(composed.DroppedSiteLimits) != 1 || composed.DroppedSiteLimits[0] != "evil.com" {
		t.Errorf("expected dropped [evil.com], got %v", composed.DroppedSiteLimits)
	}
	want := "(benefits site:benefits.usa.gov)"
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeAllSiteLimitsDropped(t *testing.T) {
	scope := core.TenantScope{Domains: []string{"usa.gov"}}
	req := newRequest("benefits")
	req.SiteLimits = "evil.com"

	composed := Compose(req, scope)

	// With no honored site limit the query carries no site token, so
	// tenant scoping applies as usual.
	want := "(benefits) (site:usa.gov)"
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeSiteExcludes(t *testing.T) {
	req := newRequest("benefits")
	req.SiteExcludes = "spam.gov junk.gov"

	composed := Compose(req, core.TenantScope{})

	want := "(benefits -site:spam.gov -site:junk.gov)"
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeClauseOrder(t *testing.T) {
	req := newRequest("benefits")
	req.QueryQuote = "tax form"
	req.QueryOr = "irs treasury"
	req.QueryNot = "scam"
	req.FileType = "pdf"

	composed := Compose(req, core.TenantScope{})

	want := `(benefits "tax form" irs OR treasury -scam filetype:pdf) ` + DefaultScope
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeFileTypeAll(t *testing.T) {
	req := newRequest("benefits")
	req.FileType = "All"

	composed := Compose(req, core.TenantScope{})

	if strings.Contains(composed.Text, "filetype:") {
		t.Errorf("filetype All should add no clause, got %q", composed.Text)
	}
}

func TestComposeFieldQualifiers(t *testing.T) {
	req := newRequest("tax help")
	req.QueryLimit = "intitle:"

	composed := Compose(req, core.TenantScope{})

	if !strings.HasPrefix(composed.Text, "(intitle:tax intitle:help)") {
		t.Errorf("expected per-term qualifier, got %q", composed.Text)
	}
}

func TestComposeLocaleClause(t *testing.T) {
	scope := core.TenantScope{Locale: "es", Domains: []string{"gobiernousa.gov"}}
	composed := Compose(newRequest("impuestos"), scope)

	want := "(impuestos) language:es (site:gobiernousa.gov)"
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeEnglishOmitsLocale(t *testing.T) {
	scope := core.TenantScope{Locale: "en"}
	composed := Compose(newRequest("taxes"), scope)

	if strings.Contains(composed.Text, "language:") {
		t.Errorf("english should add no language clause, got %q", composed.Text)
	}
}

func TestComposeEmptyQueryScopeOnly(t *testing.T) {
	scope := core.TenantScope{Domains: []string{"usa.gov"}}
	composed := Compose(newRequest(""), scope)

	want := "(site:usa.gov)"
	if composed.Text != want {
		t.Errorf("expected scope-only query %q, got %q", want, composed.Text)
	}

	composed = Compose(newRequest(""), core.TenantScope{})
	if composed.Text != DefaultScope {
		t.Errorf("expected default scope only, got %q", composed.Text)
	}
}

func TestComposeEmptyQueryWithLocale(t *testing.T) {
	scope := core.TenantScope{Domains: []string{"gobiernousa.gov"}, Locale: "es"}
	composed := Compose(newRequest(""), scope)

	want := "language:es (site:gobiernousa.gov)"
	if composed.Text != want {
		t.Errorf("expected %q, got %q", want, composed.Text)
	}
}

func TestComposeDomainBudget(t *testing.T) {
	huge := strings.Repeat("x", MaxQueryLength) + ".gov"
	scope := core.TenantScope{Domains: []string{"a.gov", huge, "b.gov"}}

	composed := Compose(newRequest("q"), scope)

	if !strings.Contains(composed.Text, "site:a.gov") {
		t.Errorf("first domain should fit, got %q", composed.Text)
	}
	if strings.Contains(composed.Text, huge) {
		t.Errorf("oversized domain should be cut, got length %d", len(composed.Text))
	}
	// Filling stops at the first domain that overflows; later shorter
	// domains are not backfilled.
	if strings.Contains(composed.Text, "site:b.gov") {
		t.Errorf("filling should stop at overflow, got %q", composed.Text)
	}
}

func TestComposeNeverExceedsBudgetPrefix(t *testing.T) {
	domains := make([]string, 200)
	for i := range domains {
		domains[i] = strings.Repeat("d", 20) + ".gov"
	}
	scope := core.TenantScope{Domains: domains}

	composed := Compose(newRequest("benefits"), scope)

	if len(composed.Text) > MaxQueryLength {
		t.Errorf("composed text %d exceeds budget %d", len(composed.Text), MaxQueryLength)
	}
	if !strings.Contains(composed.Text, "site:dddddddddddddddddddd.gov") {
		t.Errorf("expected some domains included, got %q", composed.Text)
	}
}

func TestComposeDeterministic(t *testing.T) {
	scope := core.TenantScope{
		Domains:       []string{"usa.gov", "irs.gov"},
		ScopeIDs:      []string{"A", "B"},
		ScopeKeywords: []string{"tax"},
	}
	req := newRequest("benefits forms")

	first := Compose(req, scope)
	for i := 0; i < 5; i++ {
		if got := Compose(req, scope); got.Text != first.Text {
			t.Fatalf("composition not deterministic: %q vs %q", got.Text, first.Text)
		}
	}
}
