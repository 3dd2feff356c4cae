package toolfactory

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/tools"
	"github.com/effective-security/agenttools/tools/airtable"
	"github.com/effective-security/agenttools/tools/awsapi"
	"github.com/effective-security/agenttools/tools/cloudflare"
	"github.com/effective-security/agenttools/tools/jira"
	"github.com/effective-security/agenttools/tools/paypal"
	"github.com/effective-security/agenttools/tools/pubmed"
	"github.com/effective-security/agenttools/tools/redisdb"
	"github.com/effective-security/agenttools/tools/scholar"
	"github.com/effective-security/agenttools/tools/slack"
	"github.com/effective-security/agenttools/tools/sqldb"
	"github.com/effective-security/agenttools/tools/tavily"
	"github.com/effective-security/agenttools/tools/terraform"
	"github.com/effective-security/agenttools/tools/whatsapp"
	"github.com/effective-security/x/values"
)

// New builds a registry with the tools enabled in the config.
// Settings omitted from the config fall back to the vendor's
// environment variables.
func New(ctx context.Context, cfg *Config) (*tools.Registry, error) {
	reg := tools.NewRegistry()
	if cfg == nil {
		return reg, nil
	}

	var list []tools.ITool

	if cfg.Tavily != nil {
		tool, err := tavily.New()
		if err != nil {
			return nil, errors.WithMessage(err, "tavily")
		}
		list = append(list, tool)
	}

	if cfg.Airtable != nil {
		vcfg, err := airtableConfig(cfg.Airtable)
		if err != nil {
			return nil, errors.WithMessage(err, "airtable")
		}
		lr, err := airtable.NewListRecordsTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "airtable")
		}
		cr, err := airtable.NewCreateRecordTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "airtable")
		}
		ur, err := airtable.NewUpdateRecordTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "airtable")
		}
		list = append(list, lr, cr, ur)
	}

	if cfg.Slack != nil {
		vcfg, err := slackConfig(cfg.Slack)
		if err != nil {
			return nil, errors.WithMessage(err, "slack")
		}
		pm, err := slack.NewPostMessageTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "slack")
		}
		lc, err := slack.NewListChannelsTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "slack")
		}
		list = append(list, pm, lc)
	}

	if cfg.Jira != nil {
		vcfg, err := jiraConfig(cfg.Jira)
		if err != nil {
			return nil, errors.WithMessage(err, "jira")
		}
		si, err := jira.NewSearchIssuesTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "jira")
		}
		ci, err := jira.NewCreateIssueTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "jira")
		}
		list = append(list, si, ci)
	}

	if cfg.Cloudflare != nil {
		vcfg, err := cloudflareConfig(cfg.Cloudflare)
		if err != nil {
			return nil, errors.WithMessage(err, "cloudflare")
		}
		lz, err := cloudflare.NewListZonesTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "cloudflare")
		}
		ld, err := cloudflare.NewListDNSRecordsTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "cloudflare")
		}
		cd, err := cloudflare.NewCreateDNSRecordTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "cloudflare")
		}
		pc, err := cloudflare.NewPurgeCacheTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "cloudflare")
		}
		list = append(list, lz, ld, cd, pc)
	}

	if cfg.PayPal != nil {
		vcfg, err := paypalConfig(cfg.PayPal)
		if err != nil {
			return nil, errors.WithMessage(err, "paypal")
		}
		co, err := paypal.NewCreateOrderTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "paypal")
		}
		cpo, err := paypal.NewCaptureOrderTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "paypal")
		}
		list = append(list, co, cpo)
	}

	if cfg.WhatsApp != nil {
		vcfg, err := whatsappConfig(cfg.WhatsApp)
		if err != nil {
			return nil, errors.WithMessage(err, "whatsapp")
		}
		sm, err := whatsapp.NewSendMessageTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "whatsapp")
		}
		st, err := whatsapp.NewSendTemplateTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "whatsapp")
		}
		list = append(list, sm, st)
	}

	if cfg.AWS != nil {
		tool, err := awsapi.New(ctx)
		if err != nil {
			return nil, errors.WithMessage(err, "aws")
		}
		list = append(list, tool)
	}

	if cfg.Terraform != nil {
		tool, err := terraform.New(&terraform.Config{
			Binary:       cfg.Terraform.Binary,
			AllowedDirs:  cfg.Terraform.AllowedDirs,
			AllowDestroy: cfg.Terraform.AllowDestroy,
			Timeout:      cfg.Terraform.Timeout,
		})
		if err != nil {
			return nil, errors.WithMessage(err, "terraform")
		}
		list = append(list, tool)
	}

	if cfg.SQL != nil {
		vcfg, err := sqldb.Open(cfg.SQL.DataSource)
		if err != nil {
			return nil, errors.WithMessage(err, "sql")
		}
		vcfg.MaxRows = cfg.SQL.MaxRows
		vcfg.Timeout = cfg.SQL.Timeout
		q, err := sqldb.NewQueryTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "sql")
		}
		lt, err := sqldb.NewListTablesTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "sql")
		}
		dt, err := sqldb.NewDescribeTableTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "sql")
		}
		list = append(list, q, lt, dt)
	}

	if cfg.Redis != nil {
		vcfg := redisdb.NewConfig(cfg.Redis.Addr)
		get, err := redisdb.NewGetTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "redis")
		}
		set, err := redisdb.NewSetTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "redis")
		}
		del, err := redisdb.NewDelTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "redis")
		}
		keys, err := redisdb.NewKeysTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "redis")
		}
		list = append(list, get, set, del, keys)
	}

	if cfg.PubMed != nil {
		vcfg := pubmed.NewConfig()
		if cfg.PubMed.APIKey != "" {
			vcfg.APIKey = cfg.PubMed.APIKey
		}
		search, err := pubmed.NewSearchTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "pubmed")
		}
		fetch, err := pubmed.NewFetchTool(vcfg)
		if err != nil {
			return nil, errors.WithMessage(err, "pubmed")
		}
		list = append(list, search, fetch)
	}

	if cfg.Scholar != nil {
		tool, err := scholar.New(scholar.NewConfig())
		if err != nil {
			return nil, errors.WithMessage(err, "scholar")
		}
		list = append(list, tool)
	}

	if err := reg.Register(list...); err != nil {
		return nil, err
	}
	return reg, nil
}

func airtableConfig(c *AirtableConfig) (*airtable.Config, error) {
	if c.APIKey == "" {
		return airtable.NewConfig()
	}
	return &airtable.Config{APIKey: c.APIKey}, nil
}

func slackConfig(c *SlackConfig) (*slack.Config, error) {
	if c.Token == "" {
		return slack.NewConfig()
	}
	return &slack.Config{Token: c.Token}, nil
}

func jiraConfig(c *JiraConfig) (*jira.Config, error) {
	if c.URL == "" || c.Email == "" || c.APIToken == "" {
		vcfg, err := jira.NewConfig()
		if err != nil {
			return nil, err
		}
		vcfg.BaseURL = values.StringsCoalesce(c.URL, vcfg.BaseURL)
		vcfg.Email = values.StringsCoalesce(c.Email, vcfg.Email)
		vcfg.APIToken = values.StringsCoalesce(c.APIToken, vcfg.APIToken)
		return vcfg, nil
	}
	return &jira.Config{BaseURL: c.URL, Email: c.Email, APIToken: c.APIToken}, nil
}

func cloudflareConfig(c *CloudflareConfig) (*cloudflare.Config, error) {
	if c.APIToken == "" {
		return cloudflare.NewConfig()
	}
	return &cloudflare.Config{APIToken: c.APIToken}, nil
}

func paypalConfig(c *PayPalConfig) (*paypal.Config, error) {
	if c.ClientID == "" || c.Secret == "" {
		return paypal.NewConfig()
	}
	return &paypal.Config{ClientID: c.ClientID, Secret: c.Secret, Live: c.Live}, nil
}

func whatsappConfig(c *WhatsAppConfig) (*whatsapp.Config, error) {
	if c.AccessToken == "" || c.PhoneNumberID == "" {
		return whatsapp.NewConfig()
	}
	return &whatsapp.Config{AccessToken: c.AccessToken, PhoneNumberID: c.PhoneNumberID}, nil
}
