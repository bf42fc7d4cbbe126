package models

import "strings"

// Replication is how a fund tracks its index.
type Replication string

const (
	Physical  Replication = "Physical"
	Synthetic Replication = "Synthetic"
)

// Distribution is what a fund does with its income.
type Distribution string

const (
	Distributing Distribution = "Distributing"
	Accumulating Distribution = "Accumulating"
)

// Instrument is a master data record. ISIN is the natural key.
type Instrument struct {
	ISIN         string       `json:"isin"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	Region       string       `json:"region"`
	Replication  Replication  `json:"replication"`
	Distribution Distribution `json:"distribution"`
	TER          float64      `json:"ter"`
}

// CanonicalRegion collapses every emerging-markets flavour into "Emerging".
func CanonicalRegion(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "Emerging") {
		return "Emerging"
	}
	return raw
}

// ParseReplication maps the scraped or exported label. Anything that is not
// a physical variant is synthetic.
func ParseReplication(raw string) Replication {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "Physisch") || strings.HasPrefix(raw, string(Physical)) {
		return Physical
	}
	return Synthetic
}

// ParseDistribution maps the scraped or exported label.
func ParseDistribution(raw string) Distribution {
	raw = strings.TrimSpace(raw)
	if raw == "Ausschüttend" || raw == string(Distributing) {
		return Distributing
	}
	return Accumulating
}

// RegionMapping is one row of the hand-maintained ISIN to type/region sheet.
type RegionMapping struct {
	ISIN   string `json:"isin"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Region string `json:"region"`
}

// FundProfile is the descriptive metadata scraped for one fund.
type FundProfile struct {
	ISIN                 string  `json:"isin"`
	Name                 string  `json:"name"`
	FundSize             float64 `json:"fund_size"`
	TER                  float64 `json:"ter"`
	Replication          string  `json:"replication"`
	LegalStructure       string  `json:"legal_structure"`
	FundCurrency         string  `json:"fund_currency"`
	Inception            string  `json:"inception"`
	Distribution         string  `json:"distribution"`
	DistributionInterval string  `json:"distribution_interval"`
	Domicile             string  `json:"domicile"`
	Structure            string  `json:"structure"`
	Provider             string  `json:"provider"`
	Custodian            string  `json:"custodian"`
	Auditor              string  `json:"auditor"`
}
