package followup

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
)

const (
	// JobIDSend delivers one follow-up message for a deferred interaction.
	JobIDSend = "interactions.followup.send"

	paramApplicationID = "application_id"
	paramToken         = "token"
	paramInteractionID = "interaction_id"
	paramPayload       = "payload"
	paramFiles         = "files"
	paramEnqueuedAt    = "enqueued_at"
)

// Job is a follow-up waiting for delivery. Token is the interaction token,
// valid for fifteen minutes after the interaction arrived. EnqueuedAt starts
// that clock; ToMessage stamps the current time when it is zero.
type Job struct {
	ApplicationID string
	Token         string
	InteractionID string
	Reply         core.Reply
	EnqueuedAt    time.Time
}

func (j Job) Validate() error {
	if strings.TrimSpace(j.ApplicationID) == "" {
		return fmt.Errorf("followup: application id is required")
	}
	if strings.TrimSpace(j.Token) == "" {
		return fmt.Errorf("followup: interaction token is required")
	}
	return nil
}

// ToMessage encodes the job into queue parameters. Parameters only hold
// strings and plain maps so any queue backend can serialize them.
func (j Job) ToMessage() (*core.JobExecutionMessage, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(j.Reply.MessageData())
	if err != nil {
		return nil, fmt.Errorf("followup: encode payload: %w", err)
	}
	files := make([]any, 0, len(j.Reply.Files))
	for _, file := range j.Reply.Files {
		files = append(files, map[string]any{
			"id":           file.ID,
			"filename":     file.Filename,
			"description":  file.Description,
			"content_type": file.ContentType,
			"data":         base64.StdEncoding.EncodeToString(file.Data),
		})
	}
	enqueuedAt := j.EnqueuedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = time.Now()
	}
	key := strings.TrimSpace(j.InteractionID)
	if key != "" {
		key = JobIDSend + ":" + key
	}
	return &core.JobExecutionMessage{
		JobID:      JobIDSend,
		ScriptPath: JobIDSend,
		Parameters: map[string]any{
			paramApplicationID: strings.TrimSpace(j.ApplicationID),
			paramToken:         strings.TrimSpace(j.Token),
			paramInteractionID: strings.TrimSpace(j.InteractionID),
			paramPayload:       string(payload),
			paramFiles:         files,
			paramEnqueuedAt:    enqueuedAt.UTC().Format(time.RFC3339Nano),
		},
		IdempotencyKey: key,
		DedupPolicy:    "drop",
	}, nil
}

// FromMessage decodes a queue message produced by ToMessage.
func FromMessage(msg *core.JobExecutionMessage) (Job, error) {
	if msg == nil {
		return Job{}, fmt.Errorf("followup: message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDSend {
		return Job{}, fmt.Errorf("followup: unexpected job id %q", msg.JobID)
	}
	job := Job{
		ApplicationID: stringParam(msg.Parameters, paramApplicationID),
		Token:         stringParam(msg.Parameters, paramToken),
		InteractionID: stringParam(msg.Parameters, paramInteractionID),
	}
	if payload := stringParam(msg.Parameters, paramPayload); payload != "" {
		if err := json.Unmarshal([]byte(payload), &job.Reply.ResponseData); err != nil {
			return Job{}, fmt.Errorf("followup: decode payload: %w", err)
		}
	}
	if raw := stringParam(msg.Parameters, paramEnqueuedAt); raw != "" {
		enqueuedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Job{}, fmt.Errorf("followup: decode enqueued_at: %w", err)
		}
		job.EnqueuedAt = enqueuedAt
	}
	files, err := decodeFiles(msg.Parameters[paramFiles])
	if err != nil {
		return Job{}, err
	}
	job.Reply.Files = files
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

func decodeFiles(raw any) ([]core.Attachment, error) {
	var entries []map[string]any
	switch typed := raw.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		entries = typed
	case []any:
		for _, item := range typed {
			entry, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("followup: invalid file entry %T", item)
			}
			entries = append(entries, entry)
		}
	default:
		return nil, fmt.Errorf("followup: invalid files parameter %T", raw)
	}

	files := make([]core.Attachment, 0, len(entries))
	for _, entry := range entries {
		data, err := base64.StdEncoding.DecodeString(stringParam(entry, "data"))
		if err != nil {
			return nil, fmt.Errorf("followup: decode file data: %w", err)
		}
		files = append(files, core.Attachment{
			ID:          stringParam(entry, "id"),
			Filename:    stringParam(entry, "filename"),
			Description: stringParam(entry, "description"),
			ContentType: stringParam(entry, "content_type"),
			Data:        data,
		})
	}
	return files, nil
}

func stringParam(params map[string]any, key string) string {
	value, _ := params[key].(string)
	return strings.TrimSpace(value)
}
