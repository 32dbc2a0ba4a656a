package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/fedsearch/fedsearch/pkg/core"
)

// ParseSearchParams maps query-string values onto a SearchRequest. Pagination
// must be numeric when present; everything else is absent-tolerant and
// normalized later by the assembler.
func ParseSearchParams(values url.Values) (core.SearchRequest, error) {
	req := core.NewSearchRequest(values.Get("query"), values.Get("affiliate"), core.VerticalWeb)

	switch v := values.Get("vertical"); v {
	case "", "web":
	case "news":
		req.Vertical = core.VerticalNews
	case "image":
		req.Vertical = core.VerticalImage
	default:
		return req, fmt.Errorf("unknown vertical %q", v)
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("invalid page %q", raw)
		}
		req.Page = page
	}
	if raw := values.Get("per_page"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("invalid per_page %q", raw)
		}
		req.PerPage = perPage
	}

	req.Locale = values.Get("locale")
	req.QueryLimit = values.Get("query_limit")
	req.QueryQuote = values.Get("query_quote")
	req.QueryQuoteLimit = values.Get("query_quote_limit")
	req.QueryOr = values.Get("query_or")
	req.QueryOrLimit = values.Get("query_or_limit")
	req.QueryNot = values.Get("query_not")
	req.QueryNotLimit = values.Get("query_not_limit")
	req.FileType = values.Get("filetype")
	req.SiteLimits = values.Get("sitelimit")
	req.SiteExcludes = values.Get("siteexclude")
	req.Channel = values.Get("channel")
	req.TBS = values.Get("tbs")

	if raw := values.Get("filter"); raw != "" {
		req.Filter = core.ParseFilterLevel(raw)
	}
	if raw := values.Get("hl"); raw != "" {
		req.EnableHighlighting = raw == "true" || raw == "1"
	}

	return req, nil
}
