package providers

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// validateResponse checks a received response against the fetch
// contract. Status must be 2xx, the body must reach the minimum length,
// and a required selector must be present when the request asked for
// one. Any miss is an attempt failure.
func validateResponse(provider string, req *Request, res *Result, minContentLength int) error {
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return NewFetchError(provider, res.StatusCode, "non-success status", nil)
	}

	if len(res.Content) < minContentLength {
		return &ContentError{
			Provider:  provider,
			Length:    len(res.Content),
			MinLength: minContentLength,
		}
	}

	if sel := req.Options.WaitSelector; sel != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Content))
		if err != nil {
			return NewFetchError(provider, res.StatusCode, "response is not parseable as HTML", err)
		}
		if doc.Find(sel).Length() == 0 {
			return &ContentError{Provider: provider, Selector: sel}
		}
	}

	return nil
}
