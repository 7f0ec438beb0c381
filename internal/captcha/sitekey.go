package captcha

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var inlineSiteKey = regexp.MustCompile(`sitekey['"]?\s*[:=]\s*['"]([0-9a-zA-Z_\-]+)['"]`)

// Detect reports which CAPTCHA family, if any, the rendered page embeds.
func Detect(html string) (Kind, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	if doc.Find(".cf-turnstile, [name='cf-turnstile-response'], iframe[src*='challenges.cloudflare.com']").Length() > 0 {
		return KindTurnstile, true
	}
	if doc.Find(".g-recaptcha, [name='g-recaptcha-response'], iframe[src*='recaptcha']").Length() > 0 {
		return KindRecaptchaV2, true
	}
	if doc.Find("iframe[src*='captcha'], [class*='captcha']").Length() > 0 {
		return KindRecaptchaV2, true
	}
	return "", false
}

// SiteKey extracts the site key for kind from rendered page HTML.
func SiteKey(kind Kind, html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	switch kind {
	case KindRecaptchaV2:
		if key, ok := doc.Find(".g-recaptcha[data-sitekey]").First().Attr("data-sitekey"); ok && key != "" {
			return key
		}
		if src, ok := doc.Find("iframe[src*='recaptcha']").First().Attr("src"); ok {
			if key := siteKeyFromURL(src); key != "" {
				return key
			}
		}
	case KindTurnstile:
		if key, ok := doc.Find("[data-sitekey]").First().Attr("data-sitekey"); ok && key != "" {
			return key
		}
		if src, ok := doc.Find("iframe[src*='challenges.cloudflare.com']").First().Attr("src"); ok {
			if key := siteKeyFromURL(src); key != "" {
				return key
			}
		}
	}

	if match := inlineSiteKey.FindStringSubmatch(html); len(match) == 2 {
		return match[1]
	}
	return ""
}

func siteKeyFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	query := parsed.Query()
	for _, key := range []string{"k", "sitekey"} {
		if value := query.Get(key); value != "" {
			return value
		}
	}
	return ""
}
