package captcha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		html string
		kind Kind
		ok   bool
	}{
		{"turnstile", `<div class="cf-turnstile" data-sitekey="0x4AAA"></div>`, KindTurnstile, true},
		{"recaptcha", `<div class="g-recaptcha" data-sitekey="6Lc"></div>`, KindRecaptchaV2, true},
		{"generic", `<iframe src="https://example.test/captcha/frame"></iframe>`, KindRecaptchaV2, true},
		{"none", `<form><input name="email"></form>`, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := Detect(tc.html)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestSiteKeyExtraction(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "6Lc-abc", SiteKey(KindRecaptchaV2, `<div class="g-recaptcha" data-sitekey="6Lc-abc"></div>`))
	assert.Equal(t, "6Lframe", SiteKey(KindRecaptchaV2, `<iframe src="https://www.google.com/recaptcha/api2/anchor?ar=1&k=6Lframe&co=x"></iframe>`))
	assert.Equal(t, "0x4turn", SiteKey(KindTurnstile, `<div data-sitekey="0x4turn"></div>`))
	assert.Equal(t, "0x4inline", SiteKey(KindTurnstile, `<script>turnstile.render('#w', {sitekey: '0x4inline'})</script>`))
	assert.Empty(t, SiteKey(KindTurnstile, `<p>nothing</p>`))
}
