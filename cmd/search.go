package cmd

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/fedsearch/fedsearch/pkg/api"
	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/normalize"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Margin(1, 0, 1, 0)

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 2)

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	suggestionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("32"))
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Run a search for an affiliate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query",
			},
			&cli.StringFlag{
				Name:  "affiliate",
				Usage: "Affiliate (tenant) to search as",
			},
			&cli.StringFlag{
				Name:  "vertical",
				Usage: "Search vertical: web, news or image",
				Value: "web",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Result page number",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "per-page",
				Usage: "Results per page",
				Value: core.DefaultPerPage,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runSearch(ctx, c.String("config"), c.String("query"), c.String("affiliate"),
				c.String("vertical"), c.Int("page"), c.Int("per-page"))
		},
	}
}

func runSearch(ctx context.Context, configPath, query, affiliate, vertical string, page, perPage int) error {
	if query == "" {
		return fmt.Errorf("--query is required")
	}
	if affiliate == "" {
		return fmt.Errorf("--affiliate is required")
	}

	svc, err := buildServices(ctx, configPath, false)
	if err != nil {
		return err
	}
	defer svc.close()

	values := url.Values{
		"query":     {query},
		"affiliate": {affiliate},
		"vertical":  {vertical},
		"page":      {fmt.Sprintf("%d", page)},
		"per_page":  {fmt.Sprintf("%d", perPage)},
	}
	req, err := api.ParseSearchParams(values)
	if err != nil {
		return err
	}

	result, err := svc.assembler.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	printResultPage(result)
	return nil
}

func printResultPage(page *core.ResultPage) {
	if page.Error != "" {
		fmt.Println(metaStyle.Render("Search degraded: " + page.Error))
	}

	if page.SpellingSuggestion != "" {
		fmt.Println(suggestionStyle.Render("Did you mean: " + page.SpellingSuggestion))
	}

	source := "provider"
	if page.FromLocalIndex {
		source = "local index"
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("%s results %d-%d of %d (%s)",
		page.Vertical, page.StartRecord, page.EndRecord, page.Total, source)))

	if len(page.Results) == 0 {
		fmt.Println("No results found")
	}
	for _, rec := range page.Results {
		var b strings.Builder
		b.WriteString(normalize.StripHighlights(rec.Title))
		b.WriteString("\n")
		b.WriteString(urlStyle.Render(rec.URL))
		if snippet := normalize.StripHighlights(rec.Snippet); snippet != "" {
			b.WriteString("\n")
			b.WriteString(snippet)
		}
		if rec.PublishedAt != nil {
			b.WriteString("\n")
			b.WriteString(metaStyle.Render(rec.PublishedAt.Format("Jan 2, 2006")))
		}
		fmt.Println(resultStyle.Render(b.String()))
	}

	if len(page.Boosted) > 0 {
		fmt.Println(headerStyle.Render("Recommended"))
		for _, boosted := range page.Boosted {
			fmt.Printf("  %s\n  %s\n", boosted.Title, urlStyle.Render(boosted.URL))
		}
	}
	if len(page.NewsItems) > 0 {
		fmt.Println(headerStyle.Render("Related news"))
		for _, item := range page.NewsItems {
			fmt.Printf("  %s\n  %s\n", normalize.StripHighlights(item.Title), urlStyle.Render(item.Link))
		}
	}
	if len(page.RelatedSearches) > 0 {
		fmt.Println(headerStyle.Render("Related searches"))
		for _, phrase := range page.RelatedSearches {
			fmt.Printf("  %s\n", phrase)
		}
	}
}
