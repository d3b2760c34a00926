package rest

import (
	"context"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

// Message is the subset of a created channel message callers use.
type Message struct {
	ID          string                    `json:"id"`
	ChannelID   string                    `json:"channel_id"`
	Content     string                    `json:"content"`
	Timestamp   string                    `json:"timestamp,omitempty"`
	Attachments []core.AttachmentMetadata `json:"attachments,omitempty"`
}

// CreateMessage posts reply to a channel. The body is always multipart so
// attachments and plain messages share one code path.
func (c *Client) CreateMessage(ctx context.Context, channelID string, reply core.Reply) (Message, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return Message{}, restError("rest: channel id is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	body, contentType, err := core.EncodeMessageMultipart(reply)
	if err != nil {
		return Message{}, restWrapError(err, goerrors.CategoryBadInput, "rest: encode message", http.StatusBadRequest, map[string]any{
			"channel_id": channelID,
		})
	}
	res, err := c.Do(ctx, Request{
		Method:      http.MethodPost,
		Path:        "channels/" + channelID + "/messages",
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return Message{}, err
	}
	var message Message
	if err := decodeBody(res, &message); err != nil {
		return Message{}, err
	}
	return message, nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID string, messageID string) error {
	channelID = strings.TrimSpace(channelID)
	messageID = strings.TrimSpace(messageID)
	if channelID == "" || messageID == "" {
		return restError("rest: channel id and message id are required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	return c.Delete(ctx, "channels/"+channelID+"/messages/"+messageID)
}

// CreateFollowup sends a follow-up message for a deferred interaction.
func (c *Client) CreateFollowup(ctx context.Context, applicationID string, token string, reply core.Reply) (Message, error) {
	applicationID = strings.TrimSpace(applicationID)
	token = strings.TrimSpace(token)
	if applicationID == "" || token == "" {
		return Message{}, restError("rest: application id and interaction token are required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	var message Message
	if err := c.PostMultipart(ctx, "webhooks/"+applicationID+"/"+token, reply.MessageData(), reply.Files, &message); err != nil {
		return Message{}, err
	}
	return message, nil
}

// EditOriginalResponse replaces the initial response of an interaction.
func (c *Client) EditOriginalResponse(ctx context.Context, applicationID string, token string, reply core.Reply) (Message, error) {
	applicationID = strings.TrimSpace(applicationID)
	token = strings.TrimSpace(token)
	if applicationID == "" || token == "" {
		return Message{}, restError("rest: application id and interaction token are required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	body, contentType, err := core.EncodeMessageMultipart(reply)
	if err != nil {
		return Message{}, restWrapError(err, goerrors.CategoryBadInput, "rest: encode message", http.StatusBadRequest, nil)
	}
	res, err := c.Do(ctx, Request{
		Method:      http.MethodPatch,
		Path:        "webhooks/" + applicationID + "/" + token + "/messages/@original",
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return Message{}, err
	}
	var message Message
	if err := decodeBody(res, &message); err != nil {
		return Message{}, err
	}
	return message, nil
}
