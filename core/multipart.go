package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
)

const (
	PayloadJSONField = "payload_json"

	defaultFileContentType = "application/octet-stream"
)

// FileFieldName is the multipart field carrying the bytes of the attachment
// with the given id.
func FileFieldName(id string) string {
	return "files[" + strings.TrimSpace(id) + "]"
}

// EncodeMultipart writes payload as the payload_json part followed by one
// files[<id>] part per attachment, in input order.
func EncodeMultipart(payload any, files []Attachment) ([]byte, string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("core: encode payload_json: %w", err)
	}

	seen := make(map[string]struct{}, len(files))
	for index, file := range files {
		id := strings.TrimSpace(file.ID)
		if id == "" {
			return nil, "", fmt.Errorf("core: attachment %d id is required", index)
		}
		if strings.TrimSpace(file.Filename) == "" {
			return nil, "", fmt.Errorf("core: attachment %s filename is required", id)
		}
		if _, exists := seen[id]; exists {
			return nil, "", fmt.Errorf("core: duplicate attachment id %s", id)
		}
		seen[id] = struct{}{}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+PayloadJSONField+`"`)
	header.Set("Content-Type", "application/json")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("core: create payload_json part: %w", err)
	}
	if _, err := part.Write(encoded); err != nil {
		return nil, "", fmt.Errorf("core: write payload_json part: %w", err)
	}

	for _, file := range files {
		contentType := strings.TrimSpace(file.ContentType)
		if contentType == "" {
			contentType = defaultFileContentType
		}
		fileHeader := make(textproto.MIMEHeader)
		fileHeader.Set("Content-Disposition", fmt.Sprintf(
			`form-data; name="%s"; filename="%s"`,
			escapeQuotes(FileFieldName(file.ID)),
			escapeQuotes(file.Filename),
		))
		fileHeader.Set("Content-Type", contentType)
		filePart, err := writer.CreatePart(fileHeader)
		if err != nil {
			return nil, "", fmt.Errorf("core: create file part %s: %w", file.ID, err)
		}
		if _, err := filePart.Write(file.Data); err != nil {
			return nil, "", fmt.Errorf("core: write file part %s: %w", file.ID, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("core: close multipart writer: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(value string) string {
	return quoteEscaper.Replace(value)
}

// EncodeMessageMultipart encodes an outbound channel message. The layout
// matches EncodeMultipart but the payload is the message itself, without an
// interaction response envelope.
func EncodeMessageMultipart(reply Reply) ([]byte, string, error) {
	return EncodeMultipart(reply.MessageData(), reply.Files)
}
