package page

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/pagepilot/pagepilot/pkg/actions"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 800
	defaultActionTimeout  = 10 * time.Second
)

// BrowserOptions configures a Browser driver.
type BrowserOptions struct {
	Headless      bool
	StartURL      string
	MaxTextLength int
}

// Browser is the playwright-backed Driver. One browser, one context, one
// page: the step loop drives a single tab, matching how a user would.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	opts    BrowserOptions
}

// NewBrowser launches a browser and opens the start URL if one is given.
func NewBrowser(opts BrowserOptions) (*Browser, error) {
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: defaultViewportWidth, Height: defaultViewportHeight},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	pg, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	pg.SetDefaultTimeout(float64(defaultActionTimeout.Milliseconds()))

	b := &Browser{pw: pw, browser: browser, context: bctx, page: pg, opts: opts}
	if opts.StartURL != "" {
		if _, err := pg.Goto(opts.StartURL); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to open start URL: %w", err)
		}
	}
	return b, nil
}

// Snapshot implements Driver.
func (b *Browser) Snapshot(_ context.Context) (*Snapshot, error) {
	content, err := b.page.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	snap, err := Clean(content, b.opts.MaxTextLength)
	if err != nil {
		return nil, fmt.Errorf("failed to clean page content: %w", err)
	}
	snap.URL = b.page.URL()
	return snap, nil
}

// Perform implements Driver. Indexed actions resolve against the same
// interactive element set, in document order, that Clean indexed.
func (b *Browser) Perform(_ context.Context, inst actions.Instance) (string, error) {
	switch inst.Name {
	case "click_element":
		var p struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return "", err
		}
		if err := b.nth(p.Index).Click(); err != nil {
			return "", fmt.Errorf("click [%d]: %w", p.Index, err)
		}
		return fmt.Sprintf("clicked element [%d]", p.Index), nil

	case "input_text":
		var p struct {
			Index      int    `json:"index"`
			Text       string `json:"text"`
			ClearFirst bool   `json:"clear_first"`
		}
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return "", err
		}
		loc := b.nth(p.Index)
		if p.ClearFirst {
			if err := loc.Clear(); err != nil {
				return "", fmt.Errorf("clear [%d]: %w", p.Index, err)
			}
		}
		if err := loc.Fill(p.Text); err != nil {
			return "", fmt.Errorf("fill [%d]: %w", p.Index, err)
		}
		return fmt.Sprintf("typed into element [%d]", p.Index), nil

	case "navigate":
		var p struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return "", err
		}
		if _, err := b.page.Goto(p.URL); err != nil {
			return "", fmt.Errorf("navigate: %w", err)
		}
		return "navigated to " + p.URL, nil

	case "go_back":
		if _, err := b.page.GoBack(); err != nil {
			return "", fmt.Errorf("go back: %w", err)
		}
		return "went back", nil

	case "scroll":
		var p struct {
			Direction string `json:"direction"`
			Amount    int    `json:"amount"`
		}
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return "", err
		}
		amount := p.Amount
		if amount == 0 {
			amount = defaultViewportHeight
		}
		if p.Direction == "up" {
			amount = -amount
		}
		if _, err := b.page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", amount)); err != nil {
			return "", fmt.Errorf("scroll: %w", err)
		}
		return fmt.Sprintf("scrolled %s", p.Direction), nil

	case "send_keys":
		var p struct {
			Keys string `json:"keys"`
		}
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return "", err
		}
		if err := b.page.Keyboard().Press(p.Keys); err != nil {
			return "", fmt.Errorf("send keys: %w", err)
		}
		return "pressed " + p.Keys, nil

	case "select_option":
		var p struct {
			Index  int    `json:"index"`
			Option string `json:"option"`
		}
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return "", err
		}
		_, err := b.nth(p.Index).SelectOption(playwright.SelectOptionValues{Labels: &[]string{p.Option}})
		if err != nil {
			return "", fmt.Errorf("select option [%d]: %w", p.Index, err)
		}
		return fmt.Sprintf("selected %q in element [%d]", p.Option, p.Index), nil

	case "extract_content":
		var p struct {
			Goal string `json:"goal"`
		}
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return "", err
		}
		text, err := b.page.InnerText("body")
		if err != nil {
			return "", fmt.Errorf("extract content: %w", err)
		}
		return text, nil

	case "wait":
		var p struct {
			Seconds int `json:"seconds"`
		}
		if err := json.Unmarshal(inst.Params, &p); err != nil {
			return "", err
		}
		if p.Seconds <= 0 {
			p.Seconds = 1
		}
		b.page.WaitForTimeout(float64(p.Seconds * 1000))
		return fmt.Sprintf("waited %ds", p.Seconds), nil

	default:
		return "", fmt.Errorf("action %q has no page effect", inst.Name)
	}
}

// Close implements Driver.
func (b *Browser) Close() error {
	if b.page != nil {
		b.page.Close()
	}
	if b.context != nil {
		b.context.Close()
	}
	if b.browser != nil {
		b.browser.Close()
	}
	if b.pw != nil {
		return b.pw.Stop()
	}
	return nil
}

func (b *Browser) nth(index int) playwright.Locator {
	return b.page.Locator(interactiveSelector).Nth(index)
}
