package core

import (
	"context"
	"fmt"
	"strings"
)

// Operations reported through Observer.ObserveOperation. Each one emits
// <prefix>.<operation>.total and <prefix>.<operation>.duration_ms.
const (
	OperationDispatch    = "dispatch"
	OperationRESTRequest = "rest_request"
	OperationSchedule    = "schedule"
	OperationDeliver     = "deliver"
	OperationCommandSync = "command_sync"
)

// metricTagKeys are the operation fields copied into metric tags. Anything
// else stays in the log line only, which keeps tag cardinality bounded.
var metricTagKeys = []string{"interaction_type", "command", "command_type", "route"}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func metricName(prefix, name string) string {
	return prefix + "." + strings.Trim(strings.TrimSpace(name), ".")
}

func operationTags(operation, status string, fields map[string]any) map[string]string {
	tags := map[string]string{"operation": operation, "status": status}
	for _, key := range metricTagKeys {
		raw, ok := fields[key]
		if !ok || raw == nil {
			continue
		}
		if value := strings.TrimSpace(fmt.Sprint(raw)); value != "" {
			tags[key] = value
		}
	}
	return tags
}

func cloneTags(tags map[string]string) map[string]string {
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}
