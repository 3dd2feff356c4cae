// Package tools defines the Tool interface for LLM agents, including
// registration, parameter schema and input parsing. Tools are thin, stateless
// request/response mappers that let agents interact with external vendor APIs
// in a structured, extensible way.
package tools
