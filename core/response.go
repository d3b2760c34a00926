package core

import "strings"

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Image       *EmbedMedia  `json:"image,omitempty"`
	Thumbnail   *EmbedMedia  `json:"thumbnail,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedMedia struct {
	URL string `json:"url"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type AllowedMentions struct {
	Parse       []string `json:"parse"`
	Roles       []string `json:"roles,omitempty"`
	Users       []string `json:"users,omitempty"`
	RepliedUser bool     `json:"replied_user,omitempty"`
}

type SelectOption struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// Component covers action rows, buttons, selects and text inputs. Style is
// a ButtonStyle for buttons and a text input style for text inputs.
type Component struct {
	Type        ComponentType  `json:"type"`
	CustomID    string         `json:"custom_id,omitempty"`
	Label       string         `json:"label,omitempty"`
	Style       int            `json:"style,omitempty"`
	URL         string         `json:"url,omitempty"`
	Disabled    bool           `json:"disabled,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Options     []SelectOption `json:"options,omitempty"`
	MinValues   *int           `json:"min_values,omitempty"`
	MaxValues   *int           `json:"max_values,omitempty"`
	Value       string         `json:"value,omitempty"`
	Required    *bool          `json:"required,omitempty"`
	Components  []Component    `json:"components,omitempty"`
}

func ActionRow(components ...Component) Component {
	return Component{Type: ComponentTypeActionRow, Components: components}
}

func Button(customID string, label string, style ButtonStyle) Component {
	return Component{
		Type:     ComponentTypeButton,
		CustomID: customID,
		Label:    label,
		Style:    int(style),
	}
}

type Choice struct {
	Name              string            `json:"name"`
	NameLocalizations map[string]string `json:"name_localizations,omitempty"`
	Value             any               `json:"value"`
}

// Attachment is a file uploaded alongside a reply or message.
type Attachment struct {
	ID          string
	Filename    string
	Description string
	ContentType string
	Data        []byte
}

type AttachmentMetadata struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Description string `json:"description,omitempty"`
}

func (a Attachment) Metadata() AttachmentMetadata {
	return AttachmentMetadata{
		ID:          strings.TrimSpace(a.ID),
		Filename:    a.Filename,
		Description: a.Description,
	}
}

// ResponseData is the message payload of an interaction callback.
type ResponseData struct {
	TTS             bool                 `json:"tts,omitempty"`
	Content         string               `json:"content,omitempty"`
	Embeds          []Embed              `json:"embeds,omitempty"`
	AllowedMentions *AllowedMentions     `json:"allowed_mentions,omitempty"`
	Flags           MessageFlag          `json:"flags,omitempty"`
	Components      []Component          `json:"components,omitempty"`
	Attachments     []AttachmentMetadata `json:"attachments,omitempty"`
}

type AutocompleteData struct {
	Choices []Choice `json:"choices"`
}

type ModalData struct {
	CustomID   string      `json:"custom_id"`
	Title      string      `json:"title"`
	Components []Component `json:"components"`
}

// ResponseEnvelope is the JSON sent in the payload_json part. Data holds a
// *ResponseData, *AutocompleteData or *ModalData depending on Type.
type ResponseEnvelope struct {
	Type ResponseType `json:"type"`
	Data any          `json:"data,omitempty"`
}

func (e ResponseEnvelope) MessageData() (*ResponseData, bool) {
	data, ok := e.Data.(*ResponseData)
	return data, ok && data != nil
}

func (e ResponseEnvelope) AutocompleteData() (*AutocompleteData, bool) {
	data, ok := e.Data.(*AutocompleteData)
	return data, ok && data != nil
}

// Response is a built envelope plus the files that travel as separate
// multipart parts, in input order.
type Response struct {
	Envelope ResponseEnvelope
	Files    []Attachment
}

// Reply is the structured input to BuildReply. Ephemeral, SuppressEmbeds,
// Files and Type never reach the wire as fields of their own.
type Reply struct {
	ResponseData

	Ephemeral      bool         `json:"-"`
	SuppressEmbeds bool         `json:"-"`
	Files          []Attachment `json:"-"`
	Type           ResponseType `json:"-"`
}

// MessageData folds the convenience fields into the wire payload.
func (r Reply) MessageData() ResponseData {
	data := r.ResponseData
	if r.Ephemeral {
		data.Flags |= MessageFlagEphemeral
	}
	if r.SuppressEmbeds {
		data.Flags |= MessageFlagSuppressEmbeds
	}
	if len(data.Embeds) > 0 {
		data.Embeds = append([]Embed(nil), data.Embeds...)
	}
	if len(data.Components) > 0 {
		data.Components = append([]Component(nil), data.Components...)
	}
	if len(r.Files) > 0 && len(data.Attachments) == 0 {
		data.Attachments = make([]AttachmentMetadata, 0, len(r.Files))
		for _, file := range r.Files {
			data.Attachments = append(data.Attachments, file.Metadata())
		}
	} else if len(data.Attachments) > 0 {
		data.Attachments = append([]AttachmentMetadata(nil), data.Attachments...)
	}
	return data
}

// ReplyText wraps content as a channel message with source.
func ReplyText(content string) Response {
	return Response{
		Envelope: ResponseEnvelope{
			Type: ResponseTypeChannelMessageWithSource,
			Data: &ResponseData{Content: content},
		},
	}
}

// BuildReply converts a structured reply into a response. Ephemeral sets bit
// 6 and SuppressEmbeds sets bit 2, OR-ed with any flags already present.
func BuildReply(reply Reply) Response {
	responseType := reply.Type
	if responseType == 0 {
		responseType = ResponseTypeChannelMessageWithSource
	}
	data := reply.MessageData()
	return Response{
		Envelope: ResponseEnvelope{Type: responseType, Data: &data},
		Files:    append([]Attachment(nil), reply.Files...),
	}
}

func EphemeralText(content string) Response {
	return BuildReply(Reply{
		ResponseData: ResponseData{Content: content},
		Ephemeral:    true,
	})
}

func Pong() Response {
	return Response{Envelope: ResponseEnvelope{Type: ResponseTypePong}}
}

// AutocompleteResult always emits a choices array, empty when there are no
// suggestions.
func AutocompleteResult(choices []Choice) Response {
	if len(choices) > MaxAutocompleteChoices {
		choices = choices[:MaxAutocompleteChoices]
	}
	out := make([]Choice, len(choices))
	copy(out, choices)
	return Response{
		Envelope: ResponseEnvelope{
			Type: ResponseTypeApplicationCommandAutocompleteResult,
			Data: &AutocompleteData{Choices: out},
		},
	}
}

func ShowModal(modal ModalData) Response {
	return Response{
		Envelope: ResponseEnvelope{Type: ResponseTypeModal, Data: &modal},
	}
}

// Defer acknowledges the interaction so a follow-up can be sent later.
func Defer(ephemeral bool) Response {
	data := &ResponseData{}
	if ephemeral {
		data.Flags = MessageFlagEphemeral
	}
	return Response{
		Envelope: ResponseEnvelope{Type: ResponseTypeDeferredChannelMessageWithSource, Data: data},
	}
}

func Respond(envelope ResponseEnvelope) Response {
	return Response{Envelope: envelope}
}

// Encode renders the response as a multipart body and returns the matching
// content type.
func (r Response) Encode() ([]byte, string, error) {
	return EncodeMultipart(r.Envelope, r.Files)
}
