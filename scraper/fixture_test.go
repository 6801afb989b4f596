package scraper

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/use-agent/tenderscope/browser/browsertest"
	"github.com/use-agent/tenderscope/config"
	"github.com/use-agent/tenderscope/models"
)

const testPortal = "https://gebiz.test/"

// tender describes one detail page of the mock portal.
type tender struct {
	Title       string
	TenderNo    string
	QuotationNo string
	Agency      string
	Ref         string
	Status      string

	// Respondents nil means the detail page has no Respondents tab.
	Respondents []models.Respondent
	Awardees    []string
	NoAwardTab  bool
	Blank       bool // detail page never renders its values
}

func (t tender) slug() string {
	return strings.ToLower(strings.ReplaceAll(t.Title, " ", "-"))
}

// site describes the search results of one keyword.
type site struct {
	Keyword     string
	Open        [][]tender
	Closed      [][]tender
	NoClosedTab bool
	NoSearchBox bool
	HiddenBack  bool
}

func listingURL(keyword string, tab models.Tab, page int) string {
	return fmt.Sprintf("%ssearch?q=%s&tab=%s&page=%d",
		testPortal, url.QueryEscape(keyword), strings.ToLower(string(tab)), page)
}

func detailURL(tab models.Tab, t tender) string {
	return testPortal + "tender/" + strings.ToLower(string(tab)) + "/" + t.slug()
}

func attr(v string) string { return html.EscapeString(v) }

func (s site) build() *browsertest.Portal {
	p := browsertest.NewPortal()
	s.install(p)
	return p
}

// install registers the landing page, every listing page and every detail
// view of s on p.
func (s site) install(p *browsertest.Portal) {
	var landing strings.Builder
	landing.WriteString(`<html><body>`)
	if !s.NoSearchBox {
		fmt.Fprintf(&landing, `<input type="text" id="contentForm:searchBar_searchBar_INPUT-SEARCH">`)
	}
	fmt.Fprintf(&landing, `<input type="button" id="contentForm:j_idt187_searchBar_BUTTON-GO" value="Go" data-nav="%s">`,
		attr(testPortal+"search?q={q}&tab=open&page=1"))
	landing.WriteString(`</body></html>`)
	p.Set(testPortal, landing.String())

	s.installTab(p, models.TabOpen, s.Open)
	s.installTab(p, models.TabClosed, s.Closed)
}

func (s site) installTab(p *browsertest.Portal, tab models.Tab, pages [][]tender) {
	if len(pages) == 0 {
		pages = [][]tender{nil}
	}
	for i, entries := range pages {
		n := i + 1
		listing := listingURL(s.Keyword, tab, n)

		var b strings.Builder
		b.WriteString(`<html><body><div class="loadingScreen_BACKGROUND" style="display:none"></div>`)
		if !s.NoClosedTab {
			fmt.Fprintf(&b, `<input type="button" id="contentForm:j_idt794_TabAction_1" value="Closed" data-nav="%s">`,
				attr(listingURL(s.Keyword, models.TabClosed, 1)))
		}
		for _, t := range entries {
			fmt.Fprintf(&b, `<div class="row"><a class="commandLink_TITLE-BLUE" href="/tender/%s/%s"> %s </a></div>`,
				strings.ToLower(string(tab)), t.slug(), html.EscapeString(t.Title))
			s.installDetail(p, tab, t, listing)
		}
		if n < len(pages) {
			fmt.Fprintf(&b, `<input type="button" id="contentForm:j_idt906:j_idt957_Next_%d" value="Next" data-nav="%s">`,
				n+1, attr(listingURL(s.Keyword, tab, n+1)))
		}
		b.WriteString(`</body></html>`)
		p.Set(listing, b.String())
	}
}

func field(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf(`<div class="row"><div class="col-md-3"><span> %s </span></div>`+
		`<div class="col-md-9"><div class="formOutputText_MAIN"><div class="formOutputText_VALUE-DIV">%s</div></div></div></div>`,
		html.EscapeString(label), html.EscapeString(value))
}

func (s site) installDetail(p *browsertest.Portal, tab models.Tab, t tender, listing string) {
	base := detailURL(tab, t)

	back := fmt.Sprintf(`<input type="button" value="Back to Search Results" data-nav="%s">`, attr(listing))
	if s.HiddenBack {
		back = fmt.Sprintf(`<input type="button" value="Back to Search Results" style="display:none" data-nav="%s">`, attr(listing))
	}
	awardTab := ""
	if !t.NoAwardTab {
		awardTab = fmt.Sprintf(`<input type="button" name="contentForm:j_idt229_TabAction_2" value="Awarded" data-nav="%s">`,
			attr(base+"/award"))
	}

	var main strings.Builder
	main.WriteString(`<html><body>`)
	if !t.Blank {
		main.WriteString(field("Tender No.", t.TenderNo))
		main.WriteString(field("Quotation No.", t.QuotationNo))
		main.WriteString(field("Agency", t.Agency))
		main.WriteString(field("Reference No.", t.Ref))
		fmt.Fprintf(&main, `<div id="j_idt238"> %s </div>`, html.EscapeString(t.Status))
		if t.Respondents != nil {
			fmt.Fprintf(&main, `<input type="button" class="formTabBar_TAB-BUTTON" value="Respondents" data-nav="%s">`,
				attr(base+"/respondents"))
		}
		main.WriteString(awardTab)
	}
	main.WriteString(back)
	main.WriteString(`</body></html>`)
	p.Set(base, main.String())

	var resp strings.Builder
	resp.WriteString(`<html><body>`)
	for _, r := range t.Respondents {
		fmt.Fprintf(&resp, `<div class="formAccordion_MAIN"><div class="formAccordion_TITLE-BAR">`+
			`<span class="formAccordion_TITLE-TEXT">%s</span> %s</div></div>`,
			html.EscapeString(r.Name), html.EscapeString(r.Amount))
	}
	resp.WriteString(awardTab)
	resp.WriteString(back)
	resp.WriteString(`</body></html>`)
	p.Set(base+"/respondents", resp.String())

	var award strings.Builder
	award.WriteString(`<html><body>`)
	award.WriteString(`<div class="formSectionHeader4_MAIN"><div class="formSectionHeader4_TEXT">Contact Person</div></div>` +
		`<div class="formOutputText_MAIN"><div class="formOutputText_HIDDEN-LABEL outputText_TITLE-BLACK">Not an awardee</div></div>`)
	for _, name := range t.Awardees {
		fmt.Fprintf(&award, `<div class="formSectionHeader4_MAIN"><div class="formSectionHeader4_TEXT">Awarded to</div></div>`+
			`<div class="formOutputText_MAIN"><div class="formOutputText_HIDDEN-LABEL outputText_TITLE-BLACK">%s</div></div>`,
			html.EscapeString(name))
	}
	award.WriteString(back)
	award.WriteString(`</body></html>`)
	p.Set(base+"/award", award.String())
}

func testConfig() config.ScraperConfig {
	return config.ScraperConfig{
		WaitTimeout:          60 * time.Millisecond,
		ListingTimeout:       60 * time.Millisecond,
		StalenessTimeout:     60 * time.Millisecond,
		PollInterval:         2 * time.Millisecond,
		RetryInitialInterval: time.Millisecond,
		MaxSessions:          1,
	}
}

func newTestScraper(t *testing.T, p *browsertest.Portal) *Scraper {
	t.Helper()
	s, err := New(p, testPortal, testConfig(), DefaultSelectors())
	require.NoError(t, err)
	return s
}

func openTender(title string) tender {
	return tender{
		Title:       title,
		TenderNo:    "TN-" + strings.ToUpper(title),
		Agency:      "Ministry of " + title,
		Status:      "OPEN",
		Respondents: []models.Respondent{},
	}
}

func titles(recs []models.TenderRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Title)
	}
	return out
}
