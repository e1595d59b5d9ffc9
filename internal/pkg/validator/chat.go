package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/futig/ragchat/internal/entity"
)

const maxQuestionLength = 8192

// ValidateStartSession validates StartSessionRequest
func (v *Validator) ValidateStartSession(req *entity.StartSessionRequest) error {
	if utf8.RuneCountInString(req.Title) > 256 {
		return fmt.Errorf("%w: title must be at most 256 characters", entity.ErrInvalidParameter)
	}

	return nil
}

// ValidateAsk validates a question submission
func (v *Validator) ValidateAsk(req *entity.AskRequest) error {
	if strings.TrimSpace(req.Question) == "" {
		return fmt.Errorf("%w: question", entity.ErrEmptyQuestion)
	}

	if utf8.RuneCountInString(req.Question) > maxQuestionLength {
		return fmt.Errorf("%w: question must be at most %d characters", entity.ErrInvalidParameter, maxQuestionLength)
	}

	return nil
}

// ValidateAudioFile validates audio file uploads (WAV and OGG)
func (v *Validator) ValidateAudioFile(file *multipart.FileHeader) error {
	if file == nil {
		return entity.ErrMissingField
	}

	// Check file extension
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".wav" && ext != ".ogg" {
		return fmt.Errorf("%w: %s (only .wav and .ogg files are allowed)", entity.ErrInvalidExtension, ext)
	}

	// Check file size
	if file.Size > v.cfg.MaxAudioFileSize {
		return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, file.Filename, file.Size, v.cfg.MaxAudioFileSize)
	}

	// Check content type if provided
	contentType := file.Header.Get("Content-Type")
	if contentType != "" &&
		contentType != "audio/wav" &&
		contentType != "audio/x-wav" &&
		contentType != "audio/ogg" &&
		contentType != "application/octet-stream" {
		return fmt.Errorf("%w: content type '%s' (expected audio/wav, audio/ogg or application/octet-stream)", entity.ErrInvalidExtension, contentType)
	}

	return nil
}
