// Package awsapi provides a tool that signs and executes arbitrary AWS
// service REST calls with Signature Version 4.
package awsapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
)

const ToolName = "AWSRequest"

// maxResponseSize bounds the body returned to the model.
const maxResponseSize = 64 * 1024

// RequestInput represents the tool input.
type RequestInput struct {
	Service string            `json:"Service" jsonschema:"title=Service,description=The AWS service code such as ec2, s3 or sts." validate:"required"`
	Region  string            `json:"Region,omitempty" jsonschema:"title=Region,description=The AWS region (defaults to the configured region)."`
	Method  string            `json:"Method,omitempty" jsonschema:"title=Method,description=The HTTP method (default GET)."`
	Path    string            `json:"Path,omitempty" jsonschema:"title=Path,description=The request path (default /)."`
	Query   map[string]string `json:"Query,omitempty" jsonschema:"title=Query,description=Query string parameters."`
	Body    string            `json:"Body,omitempty" jsonschema:"title=Body,description=The raw request body."`
}

// RequestResult represents the tool output.
type RequestResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

func (r *RequestResult) GetContent() string {
	return llmutils.ToJSON(r)
}

func (r *RequestResult) String() string {
	return fmt.Sprintf("STATUS: %d\n%s", r.StatusCode, r.Body)
}

// Tool signs requests with SigV4 using the default AWS credential chain
// and executes them against the service endpoint.
type Tool struct {
	name        string
	description string
	funcParams  any

	awsCfg     aws.Config
	endpoint   string
	httpClient *http.Client
}

var _ tools.Tool[RequestInput, RequestResult] = (*Tool)(nil)

func New(ctx context.Context) (*Tool, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	return NewWithConfig(awsCfg)
}

func NewWithConfig(awsCfg aws.Config) (*Tool, error) {
	sc, err := schema.New(reflect.TypeOf(RequestInput{}))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create schema")
	}
	return &Tool{
		name:        ToolName,
		description: "Executes a SigV4-signed HTTP request against an AWS service endpoint.",
		funcParams:  sc.Parameters,
		awsCfg:      awsCfg,
		httpClient:  http.DefaultClient,
	}, nil
}

// WithEndpoint overrides the service endpoint, used in tests.
func (t *Tool) WithEndpoint(endpoint string) *Tool {
	t.endpoint = endpoint
	return t
}

func (t *Tool) WithHTTPClient(client *http.Client) *Tool {
	t.httpClient = client
	return t
}

func (t *Tool) Name() string        { return t.name }
func (t *Tool) Description() string { return t.description }
func (t *Tool) Parameters() any     { return t.funcParams }

func (t *Tool) Run(ctx context.Context, req *RequestInput) (*RequestResult, error) {
	if req.Service == "" {
		return nil, errors.New("invalid request: empty service")
	}
	region := req.Region
	if region == "" {
		region = t.awsCfg.Region
	}
	if region == "" {
		return nil, errors.New("invalid request: region is not set")
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	path := req.Path
	if path == "" {
		path = "/"
	}

	endpoint := t.endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.%s.amazonaws.com", req.Service, region)
	}
	uri := endpoint + path
	if len(req.Query) > 0 {
		query := url.Values{}
		for k, v := range req.Query {
			query.Set(k, v)
		}
		uri += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, uri, strings.NewReader(req.Body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	creds, err := t.awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve AWS credentials")
	}

	sum := sha256.Sum256([]byte(req.Body))
	payloadHash := hex.EncodeToString(sum[:])

	signer := v4.NewSigner()
	err = signer.SignHTTP(ctx, creds, httpReq, payloadHash, req.Service, region, time.Now())
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign request")
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call AWS API")
	}
	defer resp.Body.Close()

	bs, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	return &RequestResult{
		StatusCode: resp.StatusCode,
		Body:       llmutils.TruncateString(string(bs), maxResponseSize),
	}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[RequestInput](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}
