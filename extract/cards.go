package extract

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-exito/models"
)

// CardSelector matches product card anchors on a listing page.
const CardSelector = "a[href*='/p']"

var priceSelectors = []string{
	".price",
	".selling-price",
	"[class*='price']",
	"[data-testid*='price']",
}

// CardsFromHTML scrapes product cards from listing markup. Cards without a
// title or link are skipped; an unparsable document yields no items.
func CardsFromHTML(doc []byte) []models.RawItem {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		slog.Debug("listing markup not parsable", slog.Any("error", err))
		return nil
	}

	var items []models.RawItem
	d.Find(CardSelector).Each(func(_ int, card *goquery.Selection) {
		title := strings.TrimSpace(card.AttrOr("title", ""))
		link := strings.TrimSpace(card.AttrOr("href", ""))
		if title == "" || link == "" {
			return
		}

		image := ""
		if img := card.Find("img").First(); img.Length() > 0 {
			image = strings.TrimSpace(img.AttrOr("src", ""))
			if image == "" {
				image = strings.TrimSpace(img.AttrOr("data-src", ""))
			}
		}

		items = append(items, &models.CardProduct{
			Name:      title,
			Link:      link,
			Image:     image,
			PriceText: cardPrice(card),
		})
	})
	return items
}

// cardPrice looks for a visible price inside the card, then in its parent.
func cardPrice(card *goquery.Selection) string {
	container := card.Parent()
	for _, sel := range priceSelectors {
		el := card.Find(sel).First()
		if el.Length() == 0 {
			el = container.Find(sel).First()
		}
		if el.Length() > 0 {
			return strings.Join(strings.Fields(el.Text()), " ")
		}
	}
	return ""
}
