package brokers

import (
	"net/url"
	"strings"
	"time"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
	"github.com/incognish/incognish/internal/captcha"
)

const peopleConnectSuccess = "Suppression request initiated at PeopleConnect (covers Intelius, ZabaSearch, TruthFinder, InstantCheckmate). " +
	"Check your email and complete identity verification to finalize."

var (
	emailInputs = []string{"input[type='email']", "input[name='email']"}
	stateInputs = []string{"select[name='state']", "input[name='state']"}
	turnstile   = captcha.KindTurnstile
)

// Flows returns the built-in browser flows keyed by handler id.
func Flows() map[string]Flow {
	peopleConnect := Flow{
		ManualURL: "https://suppression.peopleconnect.us/login",
		Requires:  []string{domain.FieldEmail},
		Steps: []Step{
			Visit("https://suppression.peopleconnect.us/login"),
			SolveCaptcha(turnstile, ""),
			FillRequired("email field", Field(domain.FieldEmail), emailInputs...),
			Check("input[type='checkbox']"),
			Submit(),
			Wait(3 * time.Second),
		},
		Success: peopleConnectSuccess,
	}

	return map[string]Flow{
		"fastpeoplesearch": {
			ManualURL: "https://www.fastpeoplesearch.com/removal",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldState},
			Steps: []Step{
				Search(func(p domain.Profile) string {
					slug := p.Get(domain.FieldFirstName) + "-" + p.Get(domain.FieldLastName) + "_" + p.Get(domain.FieldState)
					return "https://www.fastpeoplesearch.com/name/" + strings.ReplaceAll(slug, " ", "-")
				}, nil, "a.btn-primary", ".card-block a[href*='/address/']"),
				Visit("https://www.fastpeoplesearch.com/removal"),
				FillListing("input[type='url']", "input[name*='url']", "input[name*='URL']"),
				SubmitForm("input[type='url']", "input[name*='url']", "input[name*='URL']"),
				Wait(3 * time.Second),
			},
			Success: "Removal submitted for: {listing}",
		},
		"truepeoplesearch": {
			ManualURL: "https://www.truepeoplesearch.com/removal",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldState},
			Steps: []Step{
				Search(func(p domain.Profile) string {
					query := url.Values{"name": {p.FullName()}, "citystatezip": {p.Get(domain.FieldState)}}
					return "https://www.truepeoplesearch.com/results?" + query.Encode()
				}, nil, "a.detail-block-link"),
				Visit("https://www.truepeoplesearch.com/removal"),
				FillListing("input[name='RecordPath']", "input[placeholder*='URL']", "input[type='url']"),
				Submit(),
				Wait(3 * time.Second),
			},
			Success: "Removal submitted for profile: {listing}",
		},
		"thatsthem": {
			ManualURL: "https://thatsthem.com/optout",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName},
			Steps: []Step{
				Visit("https://thatsthem.com/optout"),
				Fill(FullName, "input[name='name']"),
				Fill(Field(domain.FieldEmail), "input[name='email']"),
				Fill(Field(domain.FieldPhone), "input[name='phone']"),
				Fill(Field(domain.FieldAddress), "input[name='street']"),
				Fill(Field(domain.FieldCity), "input[name='city']"),
				Fill(Field(domain.FieldZipCode), "input[name='zip']"),
				Choose(Field(domain.FieldState), "select[name='state']"),
				SolveCaptcha(captcha.KindRecaptchaV2, ""),
				Submit(),
				Wait(3 * time.Second),
			},
			Success: "Opt-out form submitted to ThatsThem.",
		},
		"clustrmaps": {
			ManualURL: "https://clustrmaps.com/bl/opt-out",
			Requires:  []string{domain.FieldEmail},
			Steps: []Step{
				Visit("https://clustrmaps.com/bl/opt-out"),
				SolveCaptcha(turnstile, "onTurnstileSuccess"),
				FillRequired("email field", Field(domain.FieldEmail), "input[type='email']", "input[name='email']", "input[placeholder*='mail' i]"),
				Submit("button.submit-comment", "button[type='submit']", "input[type='submit']"),
				Wait(4 * time.Second),
			},
			Success: "Opt-out request submitted to ClustrMaps. Check your email inbox for a confirmation link to complete removal.",
		},
		"intelius":   peopleConnect,
		"zabasearch": peopleConnect,
		"beenverified": {
			ManualURL: "https://www.beenverified.com/app/optout/search",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldEmail},
			Steps: []Step{
				Visit("https://www.beenverified.com/app/optout/search"),
				SolveCaptcha(turnstile, ""),
				FillRequired("first name field", Field(domain.FieldFirstName), "input[name='firstName']", "input[placeholder*='First']"),
				Fill(Field(domain.FieldLastName), "input[name='lastName']", "input[placeholder*='Last']"),
				Choose(Field(domain.FieldState), stateInputs...),
				Submit(),
				Wait(3 * time.Second),
				Click("Opt Out button", "//a[contains(., 'Opt Out')]", "//button[contains(., 'Opt Out')]", ".optout-btn", ".opt-out-btn"),
				Wait(2 * time.Second),
				Fill(Field(domain.FieldEmail), emailInputs...),
				ClickIfPresent(submitButtons...),
				Wait(3 * time.Second),
			},
			Success: "Opt-out submitted to BeenVerified. Check your email and click the verification link to complete removal.",
		},
		"peoplefinders": {
			ManualURL: "https://www.peoplefinders.com/manage",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldEmail},
			Steps: []Step{
				Visit("https://www.peoplefinders.com/manage"),
				SolveCaptcha(turnstile, ""),
				FillRequired("first name field", Field(domain.FieldFirstName), "input[name='firstName']", "input[placeholder*='First']", "input[name='fn']"),
				Fill(Field(domain.FieldLastName), "input[name='lastName']", "input[placeholder*='Last']", "input[name='ln']"),
				Choose(Field(domain.FieldState), stateInputs...),
				Fill(Field(domain.FieldEmail), emailInputs...),
				Submit(),
				Wait(3 * time.Second),
				ClickIfPresent("//a[contains(., 'Opt Out')]", "//button[contains(., 'Remove')]"),
				Wait(2 * time.Second),
			},
			Success: "Opt-out submitted to PeopleFinders. Check your email and click the confirmation link to complete removal.",
		},
		"familytreenow": {
			ManualURL: "https://www.familytreenow.com/optout",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName},
			Steps: []Step{
				Visit("https://www.familytreenow.com/optout"),
				FillRequired("first name field", Field(domain.FieldFirstName), "input[name='fname']", "input[placeholder*='First']"),
				Fill(Field(domain.FieldLastName), "input[name='lname']", "input[placeholder*='Last']"),
				Choose(Field(domain.FieldState), stateInputs...),
				Fill(Field(domain.FieldCity), "input[name='city']", "input[placeholder*='City']"),
				Submit(),
				Wait(3 * time.Second),
				ClickIfPresent("button.optout-btn", "a.optout", "input[value*='Opt']"),
				Wait(2 * time.Second),
			},
			Success: "Opt-out submitted on FamilyTreeNow.",
		},
		"publicrecordsnow": {
			ManualURL: "https://www.publicrecordsnow.com/static/view/optout",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldState},
			Steps: []Step{
				Visit("https://www.publicrecordsnow.com/static/view/optout"),
				Fill(Field(domain.FieldFirstName), "input[name='first_name']", "input[name='firstname']", "input[id='first_name']", "input[placeholder*='First']"),
				Fill(Field(domain.FieldLastName), "input[name='last_name']", "input[name='lastname']", "input[id='last_name']", "input[placeholder*='Last']"),
				Fill(Field(domain.FieldCity), "input[name='city']", "input[id='city']", "input[placeholder*='City']"),
				Choose(Field(domain.FieldState), "select[name='state']", "input[name='state']", "select[id='state']", "input[id='state']"),
				BailOnCaptcha(),
				Submit("button[type='submit']", "input[type='submit']", "//button[contains(., 'Opt')]", "//button[contains(., 'Submit')]"),
				Wait(3 * time.Second),
			},
			Success: "Opt-out submitted to PublicRecordsNow.",
		},
		"smartbackgroundchecks": {
			ManualURL: "https://www.smartbackgroundchecks.com/optout",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldState},
			Steps: []Step{
				Search(func(p domain.Profile) string {
					name := strings.ReplaceAll(p.Get(domain.FieldFirstName)+"-"+p.Get(domain.FieldLastName), " ", "-")
					return "https://www.smartbackgroundchecks.com/people/" + name + "/" + stateSlug(p)
				}, func(p domain.Profile, href string) bool {
					return strings.Contains(strings.ToLower(href), stateSlug(p))
				}, "a[href*='/people/']", ".result a", ".card a", ".person-card a"),
				VisitListing(),
				Click("removal link", "//a[contains(., 'Remove')]", "//button[contains(., 'Remove')]", "//a[contains(., 'Opt Out')]", "a[href*='optout']", "a[href*='opt-out']"),
				Wait(2 * time.Second),
				Fill(Field(domain.FieldEmail), "input[type='email']", "input[name='email']", "input[name*='email']"),
				ClickIfPresent(submitButtons...),
				Wait(3 * time.Second),
			},
			Success: "Removal request submitted for {listing}. Check your email and click the verification link if received.",
		},
		"voterrecords": {
			ManualURL: "https://voterrecords.com/opt-out",
			Requires:  []string{domain.FieldFirstName, domain.FieldLastName, domain.FieldState},
			Steps: []Step{
				Search(func(p domain.Profile) string {
					name := strings.ToLower(p.Get(domain.FieldFirstName) + "-" + p.Get(domain.FieldLastName))
					return "https://voterrecords.com/voters/" + strings.ReplaceAll(name, " ", "-") + "/" + stateSlug(p)
				}, nil, "a[href*='/voter/']"),
				VisitListing(),
				Click("opt-out link", "a[href*='opt-out']", "//a[contains(., 'Opt Out')]", "//a[contains(., 'opt out')]", "//a[contains(., 'Remove')]"),
				Wait(2 * time.Second),
				BailOnCaptcha(),
				Fill(Field(domain.FieldEmail), "input[type='email']", "input[name='email']", "input[name*='email']"),
				FillListingIfPresent("input[name*='url']", "input[name*='URL']", "input[name*='link']", "input[type='url']"),
				Submit(),
				Wait(3 * time.Second),
			},
			Success: "Opt-out submitted for {listing}. If you receive a verification email, click the link to complete removal.",
		},
	}
}

func stateSlug(p domain.Profile) string {
	return strings.ToLower(strings.ReplaceAll(p.Get(domain.FieldState), " ", "-"))
}

// RegisterDefaults binds the email handler and every built-in flow.
func RegisterDefaults(reg *Registry, browser Browser, solver captcha.Solver, mailer Mailer) {
	reg.Register(EmailHandlerID, func() ports.Handler {
		return EmailHandler{Mailer: mailer}
	})
	for id, flow := range Flows() {
		reg.Register(id, func() ports.Handler {
			return FlowHandler{Flow: flow, Browser: browser, Solver: solver}
		})
	}
}
