package justetf

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/bobmcallan/finhub/internal/common"
	"github.com/bobmcallan/finhub/internal/models"
)

// Infobox and table labels of the German profile page, spaces removed.
const (
	labelFundSize = "Fondsgröße"
	labelTER      = "Gesamtkostenquote(TER)"
)

// tableLabels maps the two-cell table rows kept from the profile page.
var tableLabels = map[string]func(*models.FundProfile, string){
	"Replikationsmethode":        func(p *models.FundProfile, v string) { p.Replication = v },
	"RechtlicheStruktur":         func(p *models.FundProfile, v string) { p.LegalStructure = v },
	"Fondswährung":               func(p *models.FundProfile, v string) { p.FundCurrency = v },
	"Auflagedatum/Handelsbeginn": func(p *models.FundProfile, v string) { p.Inception = v },
	"Ausschüttung":               func(p *models.FundProfile, v string) { p.Distribution = v },
	"Ausschüttungsintervall":     func(p *models.FundProfile, v string) { p.DistributionInterval = v },
	"Fondsdomizil":               func(p *models.FundProfile, v string) { p.Domicile = v },
	"Fondsstruktur":              func(p *models.FundProfile, v string) { p.Structure = v },
	"Anbieter":                   func(p *models.FundProfile, v string) { p.Provider = v },
	"Depotbank":                  func(p *models.FundProfile, v string) { p.Custodian = v },
	"Wirtschaftsprüfer":          func(p *models.FundProfile, v string) { p.Auditor = v },
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// findAll returns the descendants of n matching tag and, if set, class, in
// document order.
func findAll(n *html.Node, tag, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag && (class == "" || hasClass(c, class)) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// children returns the direct element children of n with the given tag.
func children(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// squash removes every space and line break.
func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// clean collapses runs of whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func missing(what string) error {
	return models.NewDataError(models.ErrExternal, "profile_page", "", "page structure changed: no "+what)
}

// parsePrice reads the currency and price spans of the first infobox.
func parsePrice(doc *html.Node) (string, float64, error) {
	boxes := findAll(doc, "div", "infobox")
	if len(boxes) == 0 {
		return "", 0, missing("infobox")
	}
	vals := findAll(boxes[0], "div", "val")
	if len(vals) == 0 {
		return "", 0, missing("price value")
	}
	spans := findAll(vals[0], "span", "")
	if len(spans) < 2 {
		return "", 0, missing("price spans")
	}
	currency := squash(text(spans[0]))
	price, err := common.ParseGermanNumber(squash(text(spans[1])))
	if err != nil {
		return "", 0, models.NewDataError(models.ErrExternal, "profile_price", models.ColPrice, err.Error())
	}
	return currency, price, nil
}

// parseProfile reads the fund name, the fund size and TER infoboxes and the
// labelled two-cell table rows.
func parseProfile(doc *html.Node) (*models.FundProfile, error) {
	p := &models.FundProfile{}

	for _, h1 := range findAll(doc, "h1", "") {
		if spans := findAll(h1, "span", "h1"); len(spans) > 0 {
			p.Name = clean(text(spans[0]))
			break
		}
	}
	if p.Name == "" {
		return nil, missing("fund name")
	}

	for _, box := range findAll(doc, "div", "infobox") {
		vals := findAll(box, "div", "val")
		labels := findAll(box, "div", "vallabel")
		if len(vals) == 0 || len(labels) == 0 {
			continue
		}
		value := squash(text(vals[0]))
		switch squash(text(labels[0])) {
		case labelFundSize:
			if !strings.HasPrefix(value, "EUR") || !strings.HasSuffix(value, "Mio.") {
				return nil, models.NewDataError(models.ErrExternal, "fund_size_unit", labelFundSize,
					"fund size not given in million EUR", value)
			}
			v, err := common.ParseGermanNumber(strings.TrimSuffix(strings.TrimPrefix(value, "EUR"), "Mio."))
			if err != nil {
				return nil, models.NewDataError(models.ErrExternal, "fund_size_unit", labelFundSize, err.Error())
			}
			p.FundSize = v * 1e6
		case labelTER:
			if !strings.HasSuffix(value, "p.a.") {
				return nil, models.NewDataError(models.ErrExternal, "ter_unit", labelTER, "TER not given per year", value)
			}
			v, err := common.ParseGermanNumber(strings.TrimSuffix(strings.TrimSuffix(value, "p.a."), "%"))
			if err != nil {
				return nil, models.NewDataError(models.ErrExternal, "ter_unit", labelTER, err.Error())
			}
			p.TER = v
		}
	}

	for _, body := range findAll(doc, "tbody", "") {
		for _, row := range children(body, "tr") {
			cells := children(row, "td")
			if len(cells) != 2 {
				continue
			}
			if set, ok := tableLabels[squash(text(cells[0]))]; ok {
				set(p, clean(text(cells[1])))
			}
		}
	}
	return p, nil
}
