package models

import "strings"

// NotAvailable is the placeholder stored for optional fields that could
// not be resolved.
const NotAvailable = "N/A"

// Tab is the results partition a tender was found under.
type Tab string

const (
	TabOpen   Tab = "Open"
	TabClosed Tab = "Closed"
)

// IdentifierKind tells which of the two mutually exclusive numbering
// schemes a tender uses.
type IdentifierKind string

const (
	TenderNumber    IdentifierKind = "tender_number"
	QuotationNumber IdentifierKind = "quotation_number"
)

// Identifier is a tender's Tender No. or Quotation No.
type Identifier struct {
	Kind  IdentifierKind `json:"kind"`
	Value string         `json:"value"`
}

// AwardStatus is the portal's status label for a tender.
type AwardStatus string

const (
	StatusOpen         AwardStatus = "OPEN"
	StatusAwarded      AwardStatus = "AWARDED"
	StatusPendingAward AwardStatus = "PENDING AWARD"
	StatusNoAward      AwardStatus = "NO AWARD"
)

// statusOrder is the report sort order. Unknown labels sort last.
var statusOrder = map[AwardStatus]int{
	StatusOpen:         0,
	StatusAwarded:      1,
	StatusPendingAward: 2,
	StatusNoAward:      3,
}

// ParseAwardStatus normalises the raw status text. Labels outside the four
// known values are kept verbatim (upper-cased) so nothing the portal shows
// is lost; they sort after the known ones.
func ParseAwardStatus(raw string) AwardStatus {
	s := strings.ToUpper(strings.Join(strings.Fields(raw), " "))
	s = strings.ReplaceAll(s, "_", " ")
	return AwardStatus(s)
}

// Priority returns the sort rank of the status.
func (s AwardStatus) Priority() int {
	if p, ok := statusOrder[s]; ok {
		return p
	}
	return len(statusOrder)
}

// Known reports whether s is one of the four documented statuses.
func (s AwardStatus) Known() bool {
	_, ok := statusOrder[s]
	return ok
}

// Respondent is one bidder on a tender. Amount keeps the portal's
// formatting (currency symbol, separators).
type Respondent struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Relevance is the classification outcome attached to a record.
type Relevance struct {
	Relevant   bool    `json:"relevant"`
	Confidence float64 `json:"confidence"`
}

// TenderRecord is one fully-resolved tender.
type TenderRecord struct {
	Title           string       `json:"title"`
	Identifier      Identifier   `json:"identifier"`
	Agency          string       `json:"agency"`
	ReferenceNumber string       `json:"reference_number"`
	AwardStatus     AwardStatus  `json:"award_status"`
	Respondents     []Respondent `json:"respondents"`
	Awardees        []string     `json:"awardees"`
	Tab             Tab          `json:"tab"`
	Relevance       *Relevance   `json:"relevance,omitempty"`
}

// UnavailableAwardees is the sentinel awardee list for tenders that are not
// awarded or whose awardee section could not be read.
func UnavailableAwardees() []string {
	return []string{NotAvailable}
}

// HasAwardees reports whether Awardees holds real names rather than the
// sentinel.
func (r *TenderRecord) HasAwardees() bool {
	return len(r.Awardees) > 0 && !(len(r.Awardees) == 1 && r.Awardees[0] == NotAvailable)
}
