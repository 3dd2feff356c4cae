package tools_test

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/effective-security/agenttools/pkg/schema"
	"github.com/effective-security/agenttools/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Text string `json:"Text" jsonschema:"title=Text,description=The text to echo." validate:"required"`
}

type echoResult struct {
	Text string `json:"text"`
}

type echoTool struct {
	name string
	fail bool
}

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) Description() string { return "Echoes the input text back." }

func (t *echoTool) Parameters() any {
	sc, _ := schema.New(reflect.TypeOf(echoRequest{}))
	return sc.Parameters
}

func (t *echoTool) Run(_ context.Context, req *echoRequest) (*echoResult, error) {
	if t.fail {
		return nil, errors.New("echo failed")
	}
	return &echoResult{Text: req.Text}, nil
}

func (t *echoTool) Call(ctx context.Context, input string) (string, error) {
	req, err := tools.ParseInput[echoRequest](input)
	if err != nil {
		return "", err
	}
	res, err := t.Run(ctx, req)
	if err != nil {
		return "", err
	}
	return llmutils.ToJSON(res), nil
}

var _ tools.Tool[echoRequest, echoResult] = (*echoTool)(nil)

func TestGetDescriptions(t *testing.T) {
	a := &echoTool{name: "EchoA"}
	b := &echoTool{name: "EchoB"}

	d := tools.GetDescriptions(a, b)
	assert.True(t, strings.HasPrefix(d, "\n```json\n"))
	assert.Contains(t, d, `"Name": "EchoA"`)
	assert.Contains(t, d, `"Name": "EchoB"`)
	assert.Contains(t, d, "Echoes the input text back.")
}

func TestRegistry(t *testing.T) {
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register(&echoTool{name: "EchoB"}, &echoTool{name: "EchoA"}))

	assert.Equal(t, []string{"EchoA", "EchoB"}, reg.Names())

	err := reg.Register(&echoTool{name: "EchoA"})
	assert.EqualError(t, err, "tool already registered: EchoA")

	tool, err := reg.Get("EchoA")
	require.NoError(t, err)
	assert.Equal(t, "EchoA", tool.Name())

	_, err = reg.Get("Missing")
	assert.True(t, errors.Is(err, chatmodel.ErrToolNotFound))

	list := reg.All()
	require.Len(t, list, 2)
	assert.Equal(t, "EchoA", list[0].Name())

	out, err := reg.Call(context.Background(), "EchoA", `{"Text":"hi"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi"}`, out)

	_, err = reg.Call(context.Background(), "Missing", `{}`)
	assert.True(t, errors.Is(err, chatmodel.ErrToolNotFound))

	assert.Contains(t, reg.Descriptions(), `"Name": "EchoA"`)
}

type countingCallback struct {
	starts, ends, errs int
	inputs             []string
}

func (c *countingCallback) OnToolStart(_ context.Context, _ tools.ITool, input string) {
	c.starts++
	c.inputs = append(c.inputs, input)
}
func (c *countingCallback) OnToolEnd(context.Context, tools.ITool, string, string) { c.ends++ }
func (c *countingCallback) OnToolError(context.Context, tools.ITool, string, error) {
	c.errs++
}

func TestRegistry_Callback(t *testing.T) {
	cb := &countingCallback{}
	reg := tools.NewRegistry().WithCallback(cb)
	require.NoError(t, reg.Register(
		&echoTool{name: "Echo"},
		&echoTool{name: "Broken", fail: true},
	))

	ctx := context.Background()

	_, err := reg.Call(ctx, "Echo", `{"Text":"hi"}`)
	require.NoError(t, err)

	_, err = reg.Call(ctx, "Broken", `{"Text":"hi"}`)
	assert.EqualError(t, err, "echo failed")

	// not-found calls never reach the callback
	_, err = reg.Call(ctx, "Missing", `{}`)
	require.Error(t, err)

	assert.Equal(t, 2, cb.starts)
	assert.Equal(t, 1, cb.ends)
	assert.Equal(t, 1, cb.errs)

	// input is accounted for on dispatch, for failed calls too
	assert.Equal(t, []string{`{"Text":"hi"}`, `{"Text":"hi"}`}, cb.inputs)
}

func TestParseInput(t *testing.T) {
	req, err := tools.ParseInput[echoRequest](`{"Text":"hello"}`)
	require.NoError(t, err)
	assert.Equal(t, "hello", req.Text)

	// tolerate prose and backticks around the JSON
	req, err = tools.ParseInput[echoRequest]("Sure, here you go:\n```json\n{\"Text\":\"wrapped\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "wrapped", req.Text)

	_, err = tools.ParseInput[echoRequest]("plain string")
	require.Error(t, err)
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))
	assert.EqualError(t, err, "failed to unmarshal input: check the schema and try again")

	// validation failure: required field missing
	_, err = tools.ParseInput[echoRequest](`{}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))
}
