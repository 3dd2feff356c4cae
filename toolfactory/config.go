// Package toolfactory builds a tool registry from a YAML configuration.
// Secrets in the config may reference environment variables, which are
// expanded at load time.
package toolfactory

import (
	"time"

	"github.com/effective-security/x/configloader"
)

// Config specifies which vendor tool sets to enable and their settings.
// A nil section leaves the vendor's tools unregistered.
type Config struct {
	Tavily     *TavilyConfig     `json:"tavily,omitempty" yaml:"tavily,omitempty"`
	Airtable   *AirtableConfig   `json:"airtable,omitempty" yaml:"airtable,omitempty"`
	Slack      *SlackConfig      `json:"slack,omitempty" yaml:"slack,omitempty"`
	Jira       *JiraConfig       `json:"jira,omitempty" yaml:"jira,omitempty"`
	Cloudflare *CloudflareConfig `json:"cloudflare,omitempty" yaml:"cloudflare,omitempty"`
	PayPal     *PayPalConfig     `json:"paypal,omitempty" yaml:"paypal,omitempty"`
	WhatsApp   *WhatsAppConfig   `json:"whatsapp,omitempty" yaml:"whatsapp,omitempty"`
	AWS        *AWSConfig        `json:"aws,omitempty" yaml:"aws,omitempty"`
	Terraform  *TerraformConfig  `json:"terraform,omitempty" yaml:"terraform,omitempty"`
	SQL        *SQLConfig        `json:"sql,omitempty" yaml:"sql,omitempty"`
	Redis      *RedisConfig      `json:"redis,omitempty" yaml:"redis,omitempty"`
	PubMed     *PubMedConfig     `json:"pubmed,omitempty" yaml:"pubmed,omitempty"`
	Scholar    *ScholarConfig    `json:"scholar,omitempty" yaml:"scholar,omitempty"`
}

// TavilyConfig enables the web search tool.
// The API key is read from the TAVILY_API_KEY environment variable.
type TavilyConfig struct{}

type AirtableConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

type SlackConfig struct {
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

type JiraConfig struct {
	URL      string `json:"url,omitempty" yaml:"url,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty"`
}

type CloudflareConfig struct {
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty"`
}

type PayPalConfig struct {
	ClientID string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Secret   string `json:"secret,omitempty" yaml:"secret,omitempty"`
	Live     bool   `json:"live,omitempty" yaml:"live,omitempty"`
}

type WhatsAppConfig struct {
	AccessToken   string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	PhoneNumberID string `json:"phone_number_id,omitempty" yaml:"phone_number_id,omitempty"`
}

// AWSConfig enables the SigV4 request tool.
// Credentials come from the default AWS credential chain.
type AWSConfig struct{}

type TerraformConfig struct {
	Binary       string        `json:"binary,omitempty" yaml:"binary,omitempty"`
	AllowedDirs  []string      `json:"allowed_dirs" yaml:"allowed_dirs"`
	AllowDestroy bool          `json:"allow_destroy,omitempty" yaml:"allow_destroy,omitempty"`
	Timeout      time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

type SQLConfig struct {
	DataSource string        `json:"data_source" yaml:"data_source"`
	MaxRows    int           `json:"max_rows,omitempty" yaml:"max_rows,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

type RedisConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type PubMedConfig struct {
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// ScholarConfig enables the Google Scholar search tool.
type ScholarConfig struct{}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
