package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsync-cli/internal/crm"
	"github.com/sells-group/leadsync-cli/internal/store"
	"github.com/sells-group/leadsync-cli/internal/syncrun"
	"github.com/sells-group/leadsync-cli/pkg/hubspot"
	"github.com/sells-group/leadsync-cli/pkg/notion"
	"github.com/sells-group/leadsync-cli/pkg/pipedrive"
	sfpkg "github.com/sells-group/leadsync-cli/pkg/salesforce"
	"github.com/sells-group/leadsync-cli/pkg/surfe"
	"github.com/sells-group/leadsync-cli/pkg/zoom"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "leadsync.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initSurfe() (surfe.Client, error) {
	if cfg.Surfe.Key == "" {
		return nil, eris.New("surfe API key is required (LEADSYNC_SURFE_KEY)")
	}
	return surfe.NewClient(cfg.Surfe.Key, surfe.WithBaseURL(cfg.Surfe.BaseURL)), nil
}

func initSalesforce() (sfpkg.Client, error) {
	if err := cfg.TargetCredentials("salesforce"); err != nil {
		return nil, err
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "salesforce JWT auth")
	}

	return sfpkg.NewClient(sf), nil
}

// buildSource constructs the record source named by the --source flag.
func buildSource(name, webinarID string) (syncrun.Source, error) {
	if err := cfg.SourceCredentials(name); err != nil {
		return nil, err
	}

	switch name {
	case "hubspot":
		client := hubspot.NewClient(cfg.HubSpot.Token, hubspot.WithBaseURL(cfg.HubSpot.BaseURL))
		return crm.NewHubSpotSource(client, cfg.HubSpot.PageLimit), nil
	case "pipedrive":
		client := pipedrive.NewClient(cfg.Pipedrive.Token, pipedrive.WithBaseURL(cfg.Pipedrive.BaseURL))
		return crm.NewPipedriveSource(client, cfg.Pipedrive.PageLimit), nil
	case "zoom":
		if webinarID == "" {
			webinarID = cfg.Zoom.WebinarID
		}
		if webinarID == "" {
			return nil, eris.New("zoom source requires --webinar-id or zoom.webinar_id")
		}
		client := zoom.NewClient(cfg.Zoom.Token, zoom.WithBaseURL(cfg.Zoom.BaseURL))
		return crm.NewZoomSource(client, webinarID), nil
	case "notion":
		return crm.NewNotionSource(notion.NewClient(cfg.Notion.Token), cfg.Notion.LeadDB), nil
	default:
		return nil, eris.Errorf("unknown source %q", name)
	}
}

// buildTarget constructs the write target named by the --target flag.
func buildTarget(name string) (syncrun.Target, error) {
	if err := cfg.TargetCredentials(name); err != nil {
		return syncrun.Target{}, err
	}

	switch name {
	case "hubspot":
		client := hubspot.NewClient(cfg.HubSpot.Token, hubspot.WithBaseURL(cfg.HubSpot.BaseURL))
		return syncrun.Target{
			Name:   "hubspot",
			Writer: crm.NewHubSpotTarget(client),
			Mapper: crm.HubSpotMapper{},
		}, nil
	case "pipedrive":
		client := pipedrive.NewClient(cfg.Pipedrive.Token, pipedrive.WithBaseURL(cfg.Pipedrive.BaseURL))
		return syncrun.Target{
			Name:   "pipedrive",
			Writer: crm.NewPipedriveTarget(client),
			Mapper: crm.PipedriveMapper{},
		}, nil
	case "salesforce":
		client, err := initSalesforce()
		if err != nil {
			return syncrun.Target{}, err
		}
		return syncrun.Target{
			Name:   "salesforce",
			Writer: crm.NewSalesforceTarget(client),
			Mapper: crm.SalesforceMapper{},
		}, nil
	default:
		return syncrun.Target{}, eris.Errorf("unknown target %q", name)
	}
}
