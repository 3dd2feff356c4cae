package llmutils_test

import (
	"testing"

	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/stretchr/testify/assert"
)

func TestCleanJSON(t *testing.T) {
	tcases := []struct {
		name string
		in   string
		exp  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"prefix", `Sure, here you go: {"a":1}`, `{"a":1}`},
		{"postfix", `{"a":1} hope this helps!`, `{"a":1}`},
		{"both", "Here:\n```json\n{\"a\":1}\n```\nDone.", `{"a":1}`},
		{"array", `the list: [1,2,3] as requested`, `[1,2,3]`},
		{"no json", `no braces here`, `no braces here`},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, string(llmutils.CleanJSON([]byte(tc.in))))
		})
	}
}

func TestTrimBackticks(t *testing.T) {
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, llmutils.TrimBackticks(`{"a":1}`))
}

func TestJSONHelpers(t *testing.T) {
	val := map[string]int{"a": 1}
	assert.Equal(t, `{"a":1}`, llmutils.ToJSON(val))
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.ToJSONIndent(val))
	assert.Equal(t, "{\n\t\"a\": 1\n}", llmutils.JSONIndent(`{"a":1}`))
	assert.Equal(t, "a: 1\n", llmutils.ToYAML(val))
	assert.Equal(t, "\n```json\n{\"a\":1}\n```\n", llmutils.BackticksJSON(`{"a":1}`))
	assert.Equal(t, "\n```yaml\na: 1\n```\n", llmutils.BackticksYAML("a: 1\n"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", llmutils.TruncateString("abc", 10))
	assert.Equal(t, "abc", llmutils.TruncateString("abc", 0))
	assert.Equal(t, "abcde... (truncated)", llmutils.TruncateString("abcdefgh", 5))
}
