package brokers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/incognish/incognish/internal/app/domain"
	"github.com/incognish/incognish/internal/app/ports"
	"github.com/incognish/incognish/internal/captcha"
)

// Value derives a form value from the profile.
type Value func(profile domain.Profile) string

// Field reads one profile field.
func Field(key string) Value {
	return func(profile domain.Profile) string { return profile.Get(key) }
}

// FullName joins first and last name.
func FullName(profile domain.Profile) string { return profile.FullName() }

// Flow is a scripted opt-out on a broker website.
type Flow struct {
	// ManualURL is quoted in fallback notes when the broker entry has no URL.
	ManualURL string
	Requires  []string
	Steps     []Step
	// Success is the submitted note; {listing} expands to the found listing URL.
	Success string
}

// Step performs one action. A non-nil outcome ends the flow early.
type Step func(ctx context.Context, run *flowRun) (*domain.Outcome, error)

type flowRun struct {
	page      Page
	solver    captcha.Solver
	profile   domain.Profile
	manualURL string
	listing   string
}

func (r *flowRun) manual(format string, args ...any) *domain.Outcome {
	outcome := manual(format, args...)
	return &outcome
}

// missing is the fallback when a required element cannot be found.
func (r *flowRun) missing(what string) *domain.Outcome {
	if r.listing != "" {
		return r.manual("Found listing at %s but could not find the %s. Visit %s and paste that URL.", r.listing, what, r.manualURL)
	}
	return r.manual("Could not find the %s. Visit %s manually.", what, r.manualURL)
}

// FlowHandler runs a Flow in a fresh browser page per attempt.
type FlowHandler struct {
	Flow    Flow
	Browser Browser
	Solver  captcha.Solver
}

var _ ports.Handler = FlowHandler{}

// Attempt runs the flow. Automation failures become manual_required with the
// URL the user should visit; only cancellation is returned as an error.
func (h FlowHandler) Attempt(ctx context.Context, profile domain.Profile, broker domain.Broker) (domain.Outcome, error) {
	manualURL := orNA(firstNonEmpty(broker.OptOutURL, h.Flow.ManualURL))

	if missing := profile.Missing(h.Flow.Requires...); len(missing) > 0 {
		return manual("Profile is missing %s. Update your profile or visit %s manually.", strings.Join(missing, ", "), manualURL), nil
	}
	if h.Browser == nil {
		return manual("Browser automation is not configured. Visit %s manually.", manualURL), nil
	}

	page, closePage, err := h.Browser.NewPage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Outcome{}, ctx.Err()
		}
		return manual("Browser automation unavailable (%v). Visit %s manually.", err, manualURL), nil
	}
	defer closePage()

	run := &flowRun{page: page, solver: h.Solver, profile: profile, manualURL: manualURL}
	for _, step := range h.Flow.Steps {
		outcome, err := step(ctx, run)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Outcome{}, ctx.Err()
			}
			return manual("Automation failed (%v). Visit %s manually.", err, manualURL), nil
		}
		if outcome != nil {
			return *outcome, nil
		}
	}

	return domain.Outcome{
		Status: domain.StatusSubmitted,
		Notes:  strings.ReplaceAll(h.Flow.Success, "{listing}", run.listing),
	}, nil
}

// Visit loads url and stops on a bot wall.
func Visit(url string) Step {
	return VisitFunc(func(domain.Profile) string { return url })
}

// VisitFunc loads a profile-derived url and stops on a bot wall.
func VisitFunc(url func(domain.Profile) string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		return run.visit(url(run.profile))
	}
}

// VisitListing loads the listing found by a preceding Search.
func VisitListing() Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		if run.listing == "" {
			return run.manual("No listing found automatically. Visit %s manually.", run.manualURL), nil
		}
		return run.visit(run.listing)
	}
}

func (r *flowRun) visit(url string) (*domain.Outcome, error) {
	if err := r.page.Navigate(url); err != nil {
		return nil, err
	}
	title, err := r.page.Title()
	if err != nil {
		return nil, err
	}
	if IsBotWall(title) {
		return r.manual("Site blocked automated access (bot check). Visit %s manually.", r.manualURL), nil
	}
	return nil, nil
}

// Search loads a results page and records the first listing link matching
// selectors. Links passing keep are preferred when keep is set.
func Search(url func(domain.Profile) string, keep func(profile domain.Profile, href string) bool, selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		searchURL := url(run.profile)
		if outcome, err := run.visit(searchURL); outcome != nil || err != nil {
			return outcome, err
		}
		html, err := run.page.HTML()
		if err != nil {
			return nil, err
		}
		location, err := run.page.Location()
		if err != nil || location == "" {
			location = searchURL
		}

		var listing string
		ok := false
		if keep != nil {
			listing, ok = findListing(html, location, func(href string) bool { return keep(run.profile, href) }, selectors...)
		}
		if !ok {
			listing, ok = findListing(html, location, nil, selectors...)
		}
		if !ok {
			return run.manual("No listing found automatically. Visit %s manually.", run.manualURL), nil
		}
		run.listing = listing
		return nil, nil
	}
}

// SolveCaptcha solves a CAPTCHA of kind when the page embeds one. callback
// names a page function to call with the token.
func SolveCaptcha(kind captcha.Kind, callback string) Step {
	return func(ctx context.Context, run *flowRun) (*domain.Outcome, error) {
		html, err := run.page.HTML()
		if err != nil {
			return nil, err
		}
		siteKey := captcha.SiteKey(kind, html)
		if siteKey == "" {
			return nil, nil
		}
		if run.solver == nil || !run.solver.Enabled() {
			return run.manual("CAPTCHA present. Add CAPSOLVER_API_KEY to .env to automate this. Visit %s manually.", run.manualURL), nil
		}

		pageURL, err := run.page.Location()
		if err != nil {
			return nil, err
		}
		token, err := run.solver.Solve(ctx, kind, pageURL, siteKey)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return run.manual("CAPTCHA could not be solved (%v). Visit %s manually.", err, run.manualURL), nil
		}
		if err := run.page.SetResponseToken(kind, token, callback); err != nil {
			return nil, err
		}
		return nil, run.page.Sleep(1500 * time.Millisecond)
	}
}

// BailOnCaptcha stops when the page embeds any CAPTCHA.
func BailOnCaptcha() Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		html, err := run.page.HTML()
		if err != nil {
			return nil, err
		}
		if _, ok := captcha.Detect(html); ok {
			return run.manual("CAPTCHA detected. Visit %s and complete the form manually.", run.manualURL), nil
		}
		return nil, nil
	}
}

// Fill sets the first matching input to value. Absent inputs and empty
// values are skipped.
func Fill(value Value, selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		v := value(run.profile)
		if v == "" {
			return nil, nil
		}
		_, err := first(selectors, func(sel string) (bool, error) { return run.page.Fill(sel, v) })
		return nil, err
	}
}

// FillRequired is Fill but stops the flow when no input matches.
func FillRequired(what string, value Value, selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		v := value(run.profile)
		found, err := first(selectors, func(sel string) (bool, error) { return run.page.Fill(sel, v) })
		if err != nil || found {
			return nil, err
		}
		return run.missing(what), nil
	}
}

// FillListing writes the found listing URL into the first matching input.
func FillListing(selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		found, err := first(selectors, func(sel string) (bool, error) { return run.page.Fill(sel, run.listing) })
		if err != nil || found {
			return nil, err
		}
		return run.missing("listing URL field"), nil
	}
}

// FillListingIfPresent is FillListing without the missing-field stop.
func FillListingIfPresent(selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		if run.listing == "" {
			return nil, nil
		}
		_, err := first(selectors, func(sel string) (bool, error) { return run.page.Fill(sel, run.listing) })
		return nil, err
	}
}

// Choose selects value in the first matching <select> or fills a text input.
func Choose(value Value, selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		v := value(run.profile)
		if v == "" {
			return nil, nil
		}
		_, err := first(selectors, func(sel string) (bool, error) { return run.page.Choose(sel, v) })
		return nil, err
	}
}

// Check ticks the first matching checkbox if present.
func Check(selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		_, err := first(selectors, run.page.Check)
		return nil, err
	}
}

// Click clicks the first matching element and stops the flow when none exists.
func Click(what string, selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		found, err := first(selectors, run.page.Click)
		if err != nil || found {
			return nil, err
		}
		return run.missing(what), nil
	}
}

// ClickIfPresent clicks the first matching element when one exists.
func ClickIfPresent(selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		_, err := first(selectors, run.page.Click)
		return nil, err
	}
}

// Submit clicks the first matching submit control.
func Submit(selectors ...string) Step {
	if len(selectors) == 0 {
		selectors = submitButtons
	}
	return Click("submit button", selectors...)
}

// SubmitForm submits the form owning the first matching element.
func SubmitForm(selectors ...string) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		found, err := first(selectors, run.page.SubmitForm)
		if err != nil || found {
			return nil, err
		}
		return run.missing("form"), nil
	}
}

// Wait pauses the flow.
func Wait(d time.Duration) Step {
	return func(_ context.Context, run *flowRun) (*domain.Outcome, error) {
		return nil, run.page.Sleep(d)
	}
}

var submitButtons = []string{"button[type='submit']", "input[type='submit']"}

var errNoSelectors = errors.New("no selectors")

func first(selectors []string, try func(selector string) (bool, error)) (bool, error) {
	if len(selectors) == 0 {
		return false, errNoSelectors
	}
	for _, selector := range selectors {
		found, err := try(selector)
		if err != nil {
			return false, fmt.Errorf("%s: %w", selector, err)
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
