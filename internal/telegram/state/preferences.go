package state

import (
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// Preferences keeps per-chat settings that outlive a single questionnaire.
// Entries expire after ttl without use.
type Preferences struct {
	cache           *cache.Cache
	defaultLanguage string
}

func NewPreferences(ttl time.Duration, defaultLanguage string) *Preferences {
	return &Preferences{
		cache:           cache.New(ttl, ttl/2),
		defaultLanguage: defaultLanguage,
	}
}

// Language returns the chat language, falling back to the default one
func (p *Preferences) Language(chatID int64) string {
	key := strconv.FormatInt(chatID, 10)
	x, found := p.cache.Get(key)
	if !found {
		return p.defaultLanguage
	}
	// refresh expiration on use
	p.cache.SetDefault(key, x)
	return x.(string)
}

// SetLanguage stores the chat language. A blank language restores the default.
func (p *Preferences) SetLanguage(chatID int64, language string) {
	key := strconv.FormatInt(chatID, 10)
	language = strings.TrimSpace(language)
	if language == "" {
		p.cache.Delete(key)
		return
	}
	p.cache.SetDefault(key, language)
}
