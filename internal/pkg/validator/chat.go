package validator

import (
	"fmt"
	"regexp"

	"github.com/futig/formchat-backend/internal/entity"
)

const (
	maxSessionIDLength = 128
	maxLanguageLength  = 40
	maxMessageLength   = 16 << 10
)

var (
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)
	// language names like "english", "Brazilian Portuguese" or "pt-BR"
	languagePattern = regexp.MustCompile(`^[\p{L}][\p{L} \-()]*$`)
)

func (v *Validator) ValidateChat(req *entity.ChatRequest) error {
	if len(req.Message) > maxMessageLength {
		return fmt.Errorf("%w: message longer than %d bytes", entity.ErrInvalidParameter, maxMessageLength)
	}
	if err := v.ValidateLanguage(req.Language); err != nil {
		return err
	}
	return v.ValidateSessionID(req.SessionID)
}

// ValidateSessionID accepts an empty id, which selects the default session
func (v *Validator) ValidateSessionID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > maxSessionIDLength || !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("%w: session_id %q", entity.ErrInvalidFormat, id)
	}
	return nil
}

// ValidateLanguage accepts an empty language, which selects the pivot language
func (v *Validator) ValidateLanguage(language string) error {
	if language == "" {
		return nil
	}
	if len(language) > maxLanguageLength || !languagePattern.MatchString(language) {
		return fmt.Errorf("%w: language %q", entity.ErrInvalidFormat, language)
	}
	return nil
}
