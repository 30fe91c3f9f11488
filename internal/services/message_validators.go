package services

import (
	"strings"

	"messaging-service/internal/apperrors"
	"messaging-service/internal/models"
)

// SendMessageRequest carries the parameters of a send.
type SendMessageRequest struct {
	MessageType string
	Content     *string
	MediaURL    *string
}

// contentValidator checks a send request and fills in the message's
// content and media fields for one message type.
type contentValidator func(req SendMessageRequest, msg *models.Message) error

// contentValidators maps each message type to its validator. Supporting
// a new type means registering one entry here; existing validators stay
// untouched.
var contentValidators = map[models.MessageType]contentValidator{
	models.MessageText:  validateTextMessage,
	models.MessageImage: mediaValidator("image URL is required", "📷 Photo"),
	models.MessageVideo: mediaValidator("video URL is required", "📹 Video"),
	models.MessageVoice: mediaValidator("voice recording URL is required", "🎤 Voice message"),
	models.MessageAudio: mediaValidator("audio URL is required", "🎵 Audio"),
}

func validateTextMessage(req SendMessageRequest, msg *models.Message) error {
	if req.Content == nil || isBlank(*req.Content) {
		return apperrors.Validation("text content cannot be empty")
	}
	msg.Content = *req.Content
	return nil
}

// mediaValidator builds the validator shared by all media types: a
// non-blank media URL is required and a default caption stands in when
// no content is supplied.
func mediaValidator(missingURLMessage, defaultCaption string) contentValidator {
	return func(req SendMessageRequest, msg *models.Message) error {
		if req.MediaURL == nil || isBlank(*req.MediaURL) {
			return apperrors.Validation("%s", missingURLMessage)
		}
		msg.MediaURL = req.MediaURL
		if req.Content != nil && !isBlank(*req.Content) {
			msg.Content = *req.Content
		} else {
			msg.Content = defaultCaption
		}
		return nil
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
