package scraper

import (
	"fmt"
	"os"
	"strings"

	"github.com/use-agent/tenderscope/browser"
	"gopkg.in/yaml.v2"
)

// Selectors holds every DOM hook the crawler relies on. The portal's markup
// is the contract here: when the site changes, this is the one place to
// update, either in DefaultSelectors or through a YAML override file.
type Selectors struct {
	SearchInput  string `yaml:"search_input"`  // id
	SearchButton string `yaml:"search_button"` // id
	ClosedTab    string `yaml:"closed_tab"`    // id

	ListingLink   string `yaml:"listing_link"`   // class
	LoadingScreen string `yaml:"loading_screen"` // class

	// NextPage is an id pattern taking the 1-based page index.
	NextPage string `yaml:"next_page"`

	ValueContainer string `yaml:"value_container"` // class
	AwardStatus    string `yaml:"award_status"`    // id

	// FieldValue is an XPath pattern taking a field label such as "Agency".
	FieldValue string `yaml:"field_value"`

	TenderNoLabel    string `yaml:"tender_no_label"`
	QuotationNoLabel string `yaml:"quotation_no_label"`
	AgencyLabel      string `yaml:"agency_label"`
	ReferenceLabel   string `yaml:"reference_label"`

	RespondentsTab string `yaml:"respondents_tab"` // class
	AccordionBlock string `yaml:"accordion_block"` // class
	AccordionBar   string `yaml:"accordion_bar"`   // class
	AccordionName  string `yaml:"accordion_name"`  // class

	AwardedTab        string `yaml:"awarded_tab"`         // name
	SectionHeader     string `yaml:"section_header"`      // css
	SectionHeaderText string `yaml:"section_header_text"` // css
	AwardeeHeader     string `yaml:"awardee_header"`
	AwardeeContent    string `yaml:"awardee_content"` // xpath, relative to the section header
	AwardeeName       string `yaml:"awardee_name"`    // css

	BackButton string `yaml:"back_button"` // xpath
	BackScript string `yaml:"back_script"`
}

// DefaultSelectors returns the selectors for the live GeBIZ portal.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchInput:  "contentForm:searchBar_searchBar_INPUT-SEARCH",
		SearchButton: "contentForm:j_idt187_searchBar_BUTTON-GO",
		ClosedTab:    "contentForm:j_idt794_TabAction_1",

		ListingLink:   "commandLink_TITLE-BLUE",
		LoadingScreen: "loadingScreen_BACKGROUND",
		NextPage:      "contentForm:j_idt906:j_idt957_Next_%d",

		ValueContainer: "formOutputText_VALUE-DIV",
		AwardStatus:    "j_idt238",
		FieldValue: "//span[normalize-space(.)='%s']" +
			"/ancestor::div[contains(@class,'col-md-3')]" +
			"/following-sibling::div[contains(@class,'col-md-9')]" +
			"//div[contains(@class,'formOutputText_VALUE-DIV')]",

		TenderNoLabel:    "Tender No.",
		QuotationNoLabel: "Quotation No.",
		AgencyLabel:      "Agency",
		ReferenceLabel:   "Reference No.",

		RespondentsTab: "formTabBar_TAB-BUTTON",
		AccordionBlock: "formAccordion_MAIN",
		AccordionBar:   "formAccordion_TITLE-BAR",
		AccordionName:  "formAccordion_TITLE-TEXT",

		AwardedTab:        "contentForm:j_idt229_TabAction_2",
		SectionHeader:     "div.formSectionHeader4_MAIN",
		SectionHeaderText: "div.formSectionHeader4_TEXT",
		AwardeeHeader:     "Awarded to",
		AwardeeContent:    "following-sibling::div[contains(@class,'formOutputText_MAIN')]",
		AwardeeName:       "div.formOutputText_HIDDEN-LABEL.outputText_TITLE-BLACK",

		BackButton: "//input[@value='Back to Search Results']",
		BackScript: `() => document.querySelector("input[value='Back to Search Results']").click()`,
	}
}

// LoadSelectors overlays the YAML file at path onto DefaultSelectors.
// Keys absent from the file keep their defaults. An empty path returns the
// defaults unchanged.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors: %w", err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("parse selectors %s: %w", path, err)
	}
	if err := sel.validate(); err != nil {
		return sel, fmt.Errorf("selectors %s: %w", path, err)
	}
	return sel, nil
}

func (s Selectors) validate() error {
	if strings.Count(s.NextPage, "%d") != 1 {
		return fmt.Errorf("next_page must contain exactly one %%d, got %q", s.NextPage)
	}
	if strings.Count(s.FieldValue, "%s") != 1 {
		return fmt.Errorf("field_value must contain exactly one %%s, got %q", s.FieldValue)
	}
	return nil
}

// NextPageButton addresses the control that advances to page index.
func (s Selectors) NextPageButton(index int) browser.Selector {
	return browser.ID(fmt.Sprintf(s.NextPage, index))
}

// ValueOf addresses the value cell next to a detail-page label.
func (s Selectors) ValueOf(label string) browser.Selector {
	return browser.XPath(fmt.Sprintf(s.FieldValue, label))
}
