package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/harvest"
)

// ParseCatalog returns the entry names on a catalog page in document order.
// Blank names are dropped; repeats are kept for the caller to count.
func ParseCatalog(html string, sel Selectors) ([]string, error) {
	if sel.Catalog == "" {
		return nil, harvest.Errorf(harvest.EINVALID, "catalog selector required")
	}

	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	names := []string{}
	doc.Find(sel.Catalog).Each(func(_ int, s *goquery.Selection) {
		if name := normalizeSpace(s.Text()); name != "" {
			names = append(names, name)
		}
	})
	return names, nil
}

// ParseEntry reads the triggers and actions from an entry page. When conv
// is non-nil descriptions are converted from their inner HTML, otherwise
// their text is used. Items without a name are counted, not returned.
func ParseEntry(html string, sel Selectors, conv harvest.Converter) (*harvest.Extraction, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}

	if sel.Page != "" && doc.Find(sel.Page).Length() == 0 {
		return nil, harvest.Errorf(harvest.EMALFORMED, "page layout %q not found", sel.Page)
	}

	ext := &harvest.Extraction{}
	if ext.Triggers, err = parseItems(doc, sel.Trigger, sel, conv, &ext.Unnamed); err != nil {
		return nil, err
	}
	if ext.Actions, err = parseItems(doc, sel.Action, sel, conv, &ext.Unnamed); err != nil {
		return nil, err
	}
	return ext, nil
}

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, harvest.WrapError(harvest.EMALFORMED, err, "failed to parse HTML")
	}
	return doc, nil
}

// parseItems reads the sub-items matched by selector. Elements without name
// text are left out and counted in unnamed.
func parseItems(doc *goquery.Document, selector string, sel Selectors, conv harvest.Converter, unnamed *int) ([]harvest.SubItem, error) {
	items := []harvest.SubItem{}
	if selector == "" {
		return items, nil
	}

	var err error
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		item := harvest.SubItem{
			Name:       itemName(s, sel.Description),
			Attributes: map[string]string{},
		}
		if item.Name == "" {
			*unnamed++
			return true
		}
		if sel.Description != "" {
			item.Description, err = description(s.Find(sel.Description).First(), conv)
			if err != nil {
				return false
			}
		}
		for _, attr := range sel.Attributes {
			if v, ok := s.Attr(attr); ok && v != "" {
				item.Attributes[attr] = v
			}
		}
		items = append(items, item)
		return true
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// itemName is the element's text with any description text removed.
func itemName(s *goquery.Selection, descSelector string) string {
	if descSelector == "" {
		return normalizeSpace(s.Text())
	}
	clone := s.Clone()
	clone.Find(descSelector).Remove()
	return normalizeSpace(clone.Text())
}

func description(s *goquery.Selection, conv harvest.Converter) (string, error) {
	if s.Length() == 0 {
		return "", nil
	}
	if conv == nil {
		return normalizeSpace(s.Text()), nil
	}
	inner, err := s.Html()
	if err != nil {
		return "", harvest.WrapError(harvest.EMALFORMED, err, "reading description")
	}
	if strings.TrimSpace(inner) == "" {
		return "", nil
	}
	return conv.Convert(inner)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
