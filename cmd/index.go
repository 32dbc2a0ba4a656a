package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/fedsearch/fedsearch/pkg/config"
	"github.com/fedsearch/fedsearch/pkg/index"
)

// IndexCommand creates the index command
func IndexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Manage the local document index",
		Commands: []*cli.Command{
			{
				Name:  "add-document",
				Usage: "Add or update one document",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "affiliate", Usage: "Owning affiliate", Required: true},
					&cli.StringFlag{Name: "url", Usage: "Document URL", Required: true},
					&cli.StringFlag{Name: "title", Usage: "Document title", Required: true},
					&cli.StringFlag{Name: "description", Usage: "Short description"},
					&cli.StringFlag{Name: "body", Usage: "Full text body"},
					&cli.StringFlag{Name: "published-at", Usage: "Publish date (RFC3339)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return addDocument(c)
				},
			},
			{
				Name:  "add-news",
				Usage: "Add or update one news feed item",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "affiliate", Usage: "Owning affiliate", Required: true},
					&cli.StringFlag{Name: "feed", Usage: "Feed name", Required: true},
					&cli.StringFlag{Name: "link", Usage: "Item link", Required: true},
					&cli.StringFlag{Name: "title", Usage: "Item title", Required: true},
					&cli.StringFlag{Name: "description", Usage: "Item description"},
					&cli.BoolFlag{Name: "video", Usage: "Mark as a video feed item"},
					&cli.StringFlag{Name: "published-at", Usage: "Publish date (RFC3339)"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return addNews(c)
				},
			},
			{
				Name:  "add-suggestion",
				Usage: "Add a type-ahead suggestion phrase",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "affiliate", Usage: "Owning affiliate", Required: true},
					&cli.StringFlag{Name: "phrase", Usage: "Suggestion phrase", Required: true},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withIndex(c.String("config"), func(store *index.Store) error {
						return store.AddSaytSuggestion(c.String("affiliate"), c.String("phrase"))
					})
				},
			},
			{
				Name:  "add-boosted",
				Usage: "Add curated boosted content",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "affiliate", Usage: "Owning affiliate", Required: true},
					&cli.StringFlag{Name: "title", Usage: "Content title", Required: true},
					&cli.StringFlag{Name: "url", Usage: "Content URL", Required: true},
					&cli.StringFlag{Name: "description", Usage: "Short description"},
					&cli.StringFlag{Name: "keywords", Usage: "Comma-separated trigger keywords"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return withIndex(c.String("config"), func(store *index.Store) error {
						return store.AddBoostedContent(c.String("affiliate"), c.String("title"),
							c.String("url"), c.String("description"), c.String("keywords"))
					})
				},
			},
			{
				Name:  "stats",
				Usage: "Show index table counts",
				Action: func(ctx context.Context, c *cli.Command) error {
					return showStats(c.String("config"))
				},
			},
		},
	}
}

func withIndex(configPath string, fn func(*index.Store) error) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store, err := openIndex(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: failed to close index: %v\n", err)
		}
	}()
	return fn(store)
}

func addDocument(c *cli.Command) error {
	doc := index.Document{
		Tenant:      c.String("affiliate"),
		URL:         c.String("url"),
		Title:       c.String("title"),
		Description: c.String("description"),
		Body:        c.String("body"),
	}
	if raw := c.String("published-at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid published-at: %w", err)
		}
		doc.PublishedAt = &at
	}
	return withIndex(c.String("config"), func(store *index.Store) error {
		if err := store.AddDocument(doc); err != nil {
			return err
		}
		fmt.Printf("Indexed %s\n", doc.URL)
		return nil
	})
}

func addNews(c *cli.Command) error {
	item := index.NewsEntry{
		Tenant:      c.String("affiliate"),
		Feed:        c.String("feed"),
		Video:       c.Bool("video"),
		Link:        c.String("link"),
		Title:       c.String("title"),
		Description: c.String("description"),
		PublishedAt: time.Now().UTC(),
	}
	if raw := c.String("published-at"); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("invalid published-at: %w", err)
		}
		item.PublishedAt = at
	}
	return withIndex(c.String("config"), func(store *index.Store) error {
		if err := store.AddNewsItem(item); err != nil {
			return err
		}
		fmt.Printf("Indexed %s\n", item.Link)
		return nil
	})
}

func showStats(configPath string) error {
	return withIndex(configPath, func(store *index.Store) error {
		stats, err := store.Stats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		names := make([]string, 0, len(stats))
		for name := range stats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-22s %d\n", name, stats[name])
		}
		return nil
	})
}
