package models

import (
	"fmt"
	"sort"
)

// Category is one semantic bucket and the ledger tags it absorbs.
type Category struct {
	Name string   `toml:"name" json:"name"`
	Tags []string `toml:"tags" json:"tags"`
}

// Taxonomy maps free-text ledger tags onto a fixed set of categories. It is
// passed to the categorizer as a value.
type Taxonomy struct {
	Categories []Category `json:"categories"`
}

// Names returns the category names in declaration order.
func (t Taxonomy) Names() []string {
	out := make([]string, len(t.Categories))
	for i, c := range t.Categories {
		out[i] = c.Name
	}
	return out
}

// TagIndex returns tag -> category name.
func (t Taxonomy) TagIndex() map[string]string {
	idx := make(map[string]string)
	for _, c := range t.Categories {
		for _, tag := range c.Tags {
			idx[tag] = c.Name
		}
	}
	return idx
}

// Validate checks that every tag belongs to exactly one category and that no
// tag carries the name of another category.
func (t Taxonomy) Validate() error {
	names := make(map[string]bool)
	for _, c := range t.Categories {
		if c.Name == "" {
			return SchemaError("taxonomy_category_name", "", "category without a name")
		}
		if names[c.Name] {
			return SchemaError("taxonomy_unique_category", "", "duplicate category", c.Name)
		}
		names[c.Name] = true
	}

	owner := make(map[string]string)
	var dup, clash []string
	for _, c := range t.Categories {
		for _, tag := range c.Tags {
			if prev, ok := owner[tag]; ok {
				dup = append(dup, fmt.Sprintf("%s (%s, %s)", tag, prev, c.Name))
				continue
			}
			owner[tag] = c.Name
			if names[tag] && tag != c.Name {
				clash = append(clash, tag)
			}
		}
	}
	if len(dup) > 0 {
		sort.Strings(dup)
		return SchemaError("taxonomy_unique_tag", "", "tag mapped to more than one category", dup...)
	}
	if len(clash) > 0 {
		sort.Strings(clash)
		return SchemaError("taxonomy_name_clash", "", "category name equals a tag name", clash...)
	}
	return nil
}

// DefaultTaxonomy is the category mapping of the household ledger.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{Categories: []Category{
		{Name: "home", Tags: []string{"rent", "insurance", "Miete"}},
		{Name: "food_healthy", Tags: []string{"restaurants", "Lebensmittel", "groceries", "Restaurants", "Restaurant Mittag"}},
		{Name: "food_unhealthy", Tags: []string{"Fast Food", "Süßigkeiten"}},
		{Name: "alcoholic_drinks", Tags: []string{"alcohol", "Alkohol"}},
		{Name: "non-alcoholic_drinks", Tags: []string{"Kaffee und Tee", "Erfrischungsgetränke", "coffee & tea", "soft drinks"}},
		{Name: "travel_vacation", Tags: []string{"sightseeing", "Sightseeing", "Beherbergung", "accommodation", "Urlaub"}},
		{Name: "transportation", Tags: []string{"bus", "Bus", "taxi", "Taxi", "metro", "Metro", "Eisenbahn", "train", "car",
			"Auto", "parking", "airplane", "fuel", "Flugzeug"}},
		{Name: "sports", Tags: []string{"training", "Training", "MoTu", "Turnier", "sport equipment", "Billard", "Konsum Training"}},
		{Name: "events_leisure_books_abos", Tags: []string{"events", "Events", "adult fun", "Spaß für Erwachsene", "games",
			"sport venues", "membership fees", "apps", "music", "books"}},
		{Name: "clothes_medicine", Tags: []string{"clothes", "accessories", "cosmetics", "medicine", "hairdresser",
			"medical services", "medical servies", "shoes"}},
		{Name: "private_devices", Tags: []string{"devices", "bike", "bicycle", "movies & TV", "mobile phone",
			"home improvement", "internet", "landline phone", "furniture"}},
		{Name: "presents", Tags: []string{"birthday", "X-Mas"}},
		{Name: "other", Tags: []string{"Wechsel", "wechsel", "income tax", "tuition", "publications", "Spende"}},
		{Name: "stocks", Tags: []string{"equity purchase"}},
	}}
}

// IdentityTaxonomy gives every tag its own category. Used for streams
// without a configured mapping, such as income.
func IdentityTaxonomy(tags []string) Taxonomy {
	seen := make(map[string]bool)
	var cats []Category
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		cats = append(cats, Category{Name: tag, Tags: []string{tag}})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].Name < cats[j].Name })
	return Taxonomy{Categories: cats}
}
