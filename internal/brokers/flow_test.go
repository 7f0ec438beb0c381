package brokers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/captcha"
)

type fakeSite struct {
	title string
	html  string
	// elements lists selectors that match on this page.
	elements map[string]bool
}

type fakePage struct {
	sites    map[string]fakeSite
	current  string
	actions  []string
	filled   map[string]string
	token    string
	callback string
	failOn   string
}

func newFakePage(sites map[string]fakeSite) *fakePage {
	return &fakePage{sites: sites, filled: make(map[string]string)}
}

func (p *fakePage) Navigate(url string) error {
	if url == p.failOn {
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	p.current = url
	p.actions = append(p.actions, "navigate "+url)
	return nil
}

func (p *fakePage) Title() (string, error)    { return p.sites[p.current].title, nil }
func (p *fakePage) Location() (string, error) { return p.current, nil }
func (p *fakePage) HTML() (string, error)     { return p.sites[p.current].html, nil }

func (p *fakePage) has(selector string) bool { return p.sites[p.current].elements[selector] }

func (p *fakePage) Exists(selector string) (bool, error) { return p.has(selector), nil }

func (p *fakePage) Fill(selector, value string) (bool, error) {
	if !p.has(selector) {
		return false, nil
	}
	p.filled[selector] = value
	return true, nil
}

func (p *fakePage) Choose(selector, value string) (bool, error) { return p.Fill(selector, value) }

func (p *fakePage) Check(selector string) (bool, error) {
	if !p.has(selector) {
		return false, nil
	}
	p.actions = append(p.actions, "check "+selector)
	return true, nil
}

func (p *fakePage) Click(selector string) (bool, error) {
	if !p.has(selector) {
		return false, nil
	}
	p.actions = append(p.actions, "click "+selector)
	return true, nil
}

func (p *fakePage) SubmitForm(selector string) (bool, error) {
	if !p.has(selector) {
		return false, nil
	}
	p.actions = append(p.actions, "submit "+selector)
	return true, nil
}

func (p *fakePage) SetResponseToken(_ captcha.Kind, token, callback string) error {
	p.token, p.callback = token, callback
	return nil
}

func (p *fakePage) Sleep(time.Duration) error { return nil }

type fakeBrowser struct {
	mu     sync.Mutex
	page   Page
	err    error
	closed int
}

func (b *fakeBrowser) NewPage(context.Context) (Page, func(), error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	return b.page, func() {
		b.mu.Lock()
		b.closed++
		b.mu.Unlock()
	}, nil
}

type fakeSolver struct {
	enabled bool
	token   string
	err     error
	calls   int
	siteKey string
}

func (s *fakeSolver) Enabled() bool { return s.enabled }

func (s *fakeSolver) Solve(_ context.Context, _ captcha.Kind, _ string, siteKey string) (string, error) {
	s.calls++
	s.siteKey = siteKey
	return s.token, s.err
}

const turnstileHTML = `<html><body><div class="cf-turnstile" data-sitekey="0x4AAA-key"></div><input type="email" name="email"></body></html>`

func clustrmapsSite() map[string]fakeSite {
	return map[string]fakeSite{
		"https://clustrmaps.com/bl/opt-out": {
			title:    "Opt-out | ClustrMaps",
			html:     turnstileHTML,
			elements: map[string]bool{"input[type='email']": true, "button.submit-comment": true},
		},
	}
}

func TestFlowHandlerSolvesTurnstileAndSubmits(t *testing.T) {
	t.Parallel()

	page := newFakePage(clustrmapsSite())
	browser := &fakeBrowser{page: page}
	solver := &fakeSolver{enabled: true, token: "tok-123"}
	handler := FlowHandler{Flow: Flows()["clustrmaps"], Browser: browser, Solver: solver}

	outcome, err := handler.Attempt(context.Background(), janeDoe, domain.Broker{ID: "clustrmaps"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSubmitted, outcome.Status)
	assert.Contains(t, outcome.Notes, "ClustrMaps")
	assert.Equal(t, "0x4AAA-key", solver.siteKey)
	assert.Equal(t, "tok-123", page.token)
	assert.Equal(t, "onTurnstileSuccess", page.callback)
	assert.Equal(t, "jane@example.test", page.filled["input[type='email']"])
	assert.Contains(t, page.actions, "click button.submit-comment")
	assert.Equal(t, 1, browser.closed)
}

func TestFlowHandlerCaptchaWithoutSolver(t *testing.T) {
	t.Parallel()

	page := newFakePage(clustrmapsSite())
	handler := FlowHandler{Flow: Flows()["clustrmaps"], Browser: &fakeBrowser{page: page}, Solver: &fakeSolver{}}

	outcome, err := handler.Attempt(context.Background(), janeDoe, domain.Broker{OptOutURL: "https://clustrmaps.com/bl/opt-out"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusManualRequired, outcome.Status)
	assert.Contains(t, outcome.Notes, "CAPSOLVER_API_KEY")
	assert.Contains(t, outcome.Notes, "https://clustrmaps.com/bl/opt-out")
	assert.NotContains(t, page.actions, "click button.submit-comment")
}

func TestFlowHandlerMissingProfileFields(t *testing.T) {
	t.Parallel()

	browser := &fakeBrowser{err: errors.New("must not be opened")}
	handler := FlowHandler{Flow: Flows()["truepeoplesearch"], Browser: browser}

	outcome, err := handler.Attempt(context.Background(), domain.Profile{domain.FieldFirstName: "Jane"}, domain.Broker{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusManualRequired, outcome.Status)
	assert.Contains(t, outcome.Notes, "last_name, state")
	assert.Contains(t, outcome.Notes, "https://www.truepeoplesearch.com/removal")
}

func TestFlowHandlerSearchesListingAndSubmitsRemoval(t *testing.T) {
	t.Parallel()

	searchURL := "https://www.truepeoplesearch.com/results?citystatezip=CA&name=Jane+Doe"
	page := newFakePage(map[string]fakeSite{
		searchURL: {
			title: "Jane Doe | TruePeopleSearch",
			html:  `<a class="detail-block-link" href="/find/person/abc123">Jane Doe</a>`,
		},
		"https://www.truepeoplesearch.com/removal": {
			title:    "Removal",
			elements: map[string]bool{"input[name='RecordPath']": true, "button[type='submit']": true},
		},
	})
	handler := FlowHandler{Flow: Flows()["truepeoplesearch"], Browser: &fakeBrowser{page: page}}

	outcome, err := handler.Attempt(context.Background(), janeDoe, domain.Broker{})
	require.NoError(t, err)

	listing := "https://www.truepeoplesearch.com/find/person/abc123"
	assert.Equal(t, domain.Outcome{Status: domain.StatusSubmitted, Notes: "Removal submitted for profile: " + listing}, outcome)
	assert.Equal(t, listing, page.filled["input[name='RecordPath']"])
}

func TestFlowHandlerStopsOnBotWall(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{
		"https://thatsthem.com/optout": {title: "Just a moment..."},
	})
	handler := FlowHandler{Flow: Flows()["thatsthem"], Browser: &fakeBrowser{page: page}}

	outcome, err := handler.Attempt(context.Background(), janeDoe, domain.Broker{OptOutURL: "https://thatsthem.com/optout"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusManualRequired, outcome.Status)
	assert.Contains(t, outcome.Notes, "blocked automated access")
}

func TestFlowHandlerAutomationErrorDegradesToManual(t *testing.T) {
	t.Parallel()

	page := newFakePage(nil)
	page.failOn = "https://thatsthem.com/optout"
	handler := FlowHandler{Flow: Flows()["thatsthem"], Browser: &fakeBrowser{page: page}}

	outcome, err := handler.Attempt(context.Background(), janeDoe, domain.Broker{OptOutURL: "https://thatsthem.com/optout"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusManualRequired, outcome.Status)
	assert.Equal(t, "Automation failed (net::ERR_CONNECTION_RESET). Visit https://thatsthem.com/optout manually.", outcome.Notes)
}

func TestFlowHandlerBrowserUnavailable(t *testing.T) {
	t.Parallel()

	handler := FlowHandler{Flow: Flows()["thatsthem"], Browser: &fakeBrowser{err: ErrBrowserUnavailable}}

	outcome, err := handler.Attempt(context.Background(), janeDoe, domain.Broker{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusManualRequired, outcome.Status)
	assert.Contains(t, outcome.Notes, "https://thatsthem.com/optout")
}

func TestFlowHandlerReturnsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := newFakePage(nil)
	page.failOn = "https://thatsthem.com/optout"
	handler := FlowHandler{Flow: Flows()["thatsthem"], Browser: &fakeBrowser{page: page}}

	_, err := handler.Attempt(ctx, janeDoe, domain.Broker{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFlowHandlerMissingSubmitMentionsListing(t *testing.T) {
	t.Parallel()

	page := newFakePage(map[string]fakeSite{
		"https://voterrecords.com/voters/jane-doe/ca": {
			title: "Voters",
			html:  `<a href="https://voterrecords.com/voter/123/jane-doe">Jane</a>`,
		},
		"https://voterrecords.com/voter/123/jane-doe": {title: "Jane Doe"},
	})
	handler := FlowHandler{Flow: Flows()["voterrecords"], Browser: &fakeBrowser{page: page}}

	outcome, err := handler.Attempt(context.Background(), janeDoe, domain.Broker{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusManualRequired, outcome.Status)
	assert.Contains(t, outcome.Notes, "Found listing at https://voterrecords.com/voter/123/jane-doe")
	assert.Contains(t, outcome.Notes, "opt-out link")
}

func TestFindListingPrefersMatchingLinks(t *testing.T) {
	t.Parallel()

	html := `<a href="/people/jane-doe/texas">TX</a><a href="/people/jane-doe/ca/123">CA</a>`
	keep := func(href string) bool { return strings.Contains(href, "/ca/") }

	listing, ok := findListing(html, "https://www.smartbackgroundchecks.com/people/jane-doe/ca", keep, "a[href*='/people/']")
	require.True(t, ok)
	assert.Equal(t, "https://www.smartbackgroundchecks.com/people/jane-doe/ca/123", listing)

	_, ok = findListing(`<a href="#top">x</a>`, "https://example.test/", nil, "a")
	assert.False(t, ok)
}

func TestIsBotWall(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBotWall("Just a moment..."))
	assert.True(t, IsBotWall("Attention Required! | Cloudflare"))
	assert.False(t, IsBotWall("Jane Doe in Austin, TX"))
}

func TestRegisterDefaultsCoversCatalogHandlers(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	RegisterDefaults(reg, &fakeBrowser{}, &fakeSolver{}, &mockMailer{})

	for _, id := range []string{
		"email", "fastpeoplesearch", "truepeoplesearch", "thatsthem", "clustrmaps", "intelius", "zabasearch",
		"beenverified", "peoplefinders", "familytreenow", "publicrecordsnow", "smartbackgroundchecks", "voterrecords",
	} {
		assert.Contains(t, reg.IDs(), id)
	}
	_, isFlow := reg.Resolve(domain.Broker{Method: domain.MethodBrowser, Handler: "intelius"}).(FlowHandler)
	assert.True(t, isFlow)
	_, isEmail := reg.Resolve(domain.Broker{Method: domain.MethodEmail}).(EmailHandler)
	assert.True(t, isEmail)
}
