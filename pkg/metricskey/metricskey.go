package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolInputParseErrors = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_input_parse_errors",
		Help:         "stats_tool_input_parse_errors provides total tool input parse errors",
		RequiredTags: []string{"tool"},
	}

	StatsToolBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_bytes_received",
		Help:         "stats_tool_bytes_received provides total input bytes received by tools",
		RequiredTags: []string{"tool"},
	}

	StatsToolBytesReturned = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_bytes_returned",
		Help:         "stats_tool_bytes_returned provides total output bytes returned by tools",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns all the metrics descriptions exposed by this repo.
var Metrics = []*metrics.Describe{
	&StatsToolCallsSucceeded,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolInputParseErrors,
	&StatsToolBytesReceived,
	&StatsToolBytesReturned,
	&PerfToolCall,
}
