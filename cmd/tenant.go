package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/fedsearch/fedsearch/pkg/config"
	"github.com/fedsearch/fedsearch/pkg/tenant"
)

// TenantCommand creates the tenant command
func TenantCommand() *cli.Command {
	return &cli.Command{
		Name:  "tenant",
		Usage: "Inspect configured affiliates",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List configured affiliates",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listTenants(c.String("config"))
				},
			},
			{
				Name:      "show",
				Usage:     "Show one affiliate's search scope",
				ArgsUsage: "<name>",
				Action: func(ctx context.Context, c *cli.Command) error {
					return showTenant(c.String("config"), c.Args().First())
				},
			},
		},
	}
}

func loadTenantStore(configPath string) (*tenant.Store, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	tenants, err := tenant.Load(cfg.TenantsPath)
	if err != nil {
		return nil, fmt.Errorf("loading tenants: %w", err)
	}
	return tenants, nil
}

func listTenants(configPath string) error {
	tenants, err := loadTenantStore(configPath)
	if err != nil {
		return err
	}

	names := tenants.Names()
	if len(names) == 0 {
		fmt.Println("No affiliates configured")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func showTenant(configPath, name string) error {
	if name == "" {
		return fmt.Errorf("affiliate name is required")
	}
	tenants, err := loadTenantStore(configPath)
	if err != nil {
		return err
	}

	scope, ok := tenants.Tenant(name)
	if !ok {
		return fmt.Errorf("affiliate %q not found", name)
	}

	fmt.Printf("Name:                 %s\n", scope.Name)
	fmt.Printf("Domains:              %s\n", strings.Join(scope.Domains, ", "))
	fmt.Printf("Scope IDs:            %s\n", strings.Join(scope.ScopeIDs, ", "))
	fmt.Printf("Scope keywords:       %s\n", strings.Join(scope.ScopeKeywords, ", "))
	fmt.Printf("Locale:               %s\n", scope.Locale)
	fmt.Printf("Local index only:     %t\n", scope.LocalIndexOnly)
	fmt.Printf("Local index eligible: %t\n", scope.LocalIndexEligible)
	fmt.Printf("Agency module:        %t\n", scope.AgencyEnabled)
	fmt.Printf("Medline module:       %t\n", scope.MedlineEnabled)
	if len(scope.GovboxFeeds) > 0 {
		fmt.Printf("Govbox feeds:         %s\n", strings.Join(scope.GovboxFeeds, ", "))
	}
	return nil
}
