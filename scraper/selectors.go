package scraper

// CSS selectors, German field labels and page-text markers used across the
// crawler. Centralising them makes future updates trivial.
const (
	// Search results page
	ResultListSelector = `.result-list, ul.search-result-list, .suchergebnisse, [class*="ergebnis"]`
	SearchFormSelector = `form[action*="Suche"], form.search-form, #suchformular`
	SearchInputSel     = `input[name="suchbegriff"], input[type="search"], input[name="query"]`

	// Listing detail links carry this path marker plus an adId parameter.
	DetailLinkMarker = "Verkaufsangebot"
	AdIDParam        = "adId="

	// Listing detail page
	DetailReadySelector = `h1, .inserat-detail, [class*="detail"]`
	ContentScopes       = `main, article, .inserat-detail, .content, #content`
	DescriptionSelector = `.inserat-beschreibung, [class*="beschreibung"], [class*="description"]`
)

// Headings with these texts are navigation or accessibility artifacts, never
// listing titles.
var navigationHeadings = []string{
	"navigation",
	"hauptnavigation",
	"servicemenü",
	"inhalt",
	"zum inhalt",
	"zur navigation",
	"suche",
	"sie sind hier",
}

// fieldLabels maps each schema field to the labels it appears under on
// detail pages. Markup is inconsistent across listings, so several
// candidates per field.
var (
	locationLabels  = []string{"Standort", "Region"}
	industryLabels  = []string{"Branche"}
	employeeLabels  = []string{"Anzahl Mitarbeiter", "Mitarbeiter"}
	revenueLabels   = []string{"Letzter Jahresumsatz", "Jahresumsatz"}
	priceLabels     = []string{"Preisvorstellung", "Kaufpreis"}
	typeLabels      = []string{"Art der Anzeige", "Anzeigenart"}
	dateLabels      = []string{"Datum", "Veröffentlicht am"}
	referenceLabels = []string{"Chiffre-Nr.", "Chiffre"}
	partnerLabels   = []string{"Regionalpartner"}
	contactLabels   = []string{"Ansprechpartner", "Kontakt"}
)

// Plain-text section markers for the free-text segmentation fallbacks.
const (
	descriptionStartMarker = "Beschreibung"
	descriptionEndMarker   = "Standort"
	factsStartMarker       = "Eckdaten"
	factsEndMarker         = "Kontakt"
)

// dismissConsentJS clicks an accept button inside a consent interstitial if
// one is showing. Evaluates to true when something was clicked.
const dismissConsentJS = `
(() => {
	const scopes = document.querySelectorAll(
		'#cookiebanner, .cookie-banner, .consent-banner, [class*="cookie"], [id*="consent"], dialog'
	);
	for (const scope of scopes) {
		for (const btn of scope.querySelectorAll('button, a[role="button"], input[type="submit"]')) {
			const text = (btn.textContent || btn.value || '').trim().toLowerCase();
			if (/akzeptieren|einverstanden|zustimmen|alle annehmen/.test(text)) {
				btn.click();
				return true;
			}
		}
	}
	return false;
})();
`

// clickNextAffordanceJS clicks a generic "next page" affordance.
const clickNextAffordanceJS = `
(() => {
	const candidates = document.querySelectorAll(
		'a[rel="next"], .pagination-next a, a.next, li.next a, .forward a, a[aria-label], a[title], button[aria-label], button[title]'
	);
	for (const el of candidates) {
		const hint = ((el.getAttribute('aria-label') || '') + ' ' +
			(el.getAttribute('title') || '') + ' ' +
			(el.className || '') + ' ' +
			(el.rel || '')).toLowerCase();
		if (!/next|nächste|weiter|vor/.test(hint)) continue;
		if (el.offsetParent === null || el.disabled) continue;
		el.click();
		return true;
	}
	return false;
})();
`
