package tools

import (
	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/agenttools/chatmodel"
	"github.com/effective-security/agenttools/pkg/llmutils"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ParseInput decodes a raw LLM-provided tool input into a typed request.
// The input is cleaned of surrounding prose and backticks, parsed with a
// lenient JSON decoder, and validated against `validate` struct tags.
// Parse or validation failures return ErrFailedUnmarshalInput so the
// agent can re-prompt with the schema.
func ParseInput[I any](input string) (*I, error) {
	var req I
	data := llmutils.CleanJSON([]byte(input))
	if err := ljson.Unmarshal(data, &req); err != nil {
		return nil, errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	if err := validate.Struct(&req); err != nil {
		return nil, errors.WithSecondaryError(errors.WithStack(chatmodel.ErrFailedUnmarshalInput), err)
	}
	return &req, nil
}
