package brokers

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var botWallTitles = []string{
	"just a moment",
	"attention required",
	"access denied",
	"security check",
	"verify you are human",
}

// IsBotWall reports whether a page title belongs to an anti-bot interstitial.
func IsBotWall(title string) bool {
	title = strings.ToLower(title)
	for _, phrase := range botWallTitles {
		if strings.Contains(title, phrase) {
			return true
		}
	}
	return false
}

// findListing returns the absolute URL of the first link matching one of
// selectors, tried in order, whose href passes keep.
func findListing(html, base string, keep func(href string) bool, selectors ...string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	for _, selector := range selectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, link *goquery.Selection) bool {
			href, ok := link.Attr("href")
			href = strings.TrimSpace(href)
			if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
				return true
			}
			ref, err := url.Parse(href)
			if err != nil {
				return true
			}
			abs := baseURL.ResolveReference(ref)
			if abs.String() == baseURL.String() {
				return true
			}
			if keep != nil && !keep(abs.String()) {
				return true
			}
			found = abs.String()
			return false
		})
		if found != "" {
			return found, true
		}
	}
	return "", false
}
