package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/guild-helper-bot-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
	matcher         language.Matcher
	tags            []language.Tag
}

// NewLocalizer loads <directory>/<lang>.json for every configured language
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	defaultTag, err := language.Parse(cfg.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", cfg.DefaultLanguage, err)
	}

	bundle := i18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, lang+".json")
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	tags := []language.Tag{defaultTag}
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang, cfg.DefaultLanguage)
		if tag, err := language.Parse(lang); err == nil && tag != defaultTag {
			tags = append(tags, tag)
		}
	}
	if _, ok := localizers[cfg.DefaultLanguage]; !ok {
		localizers[cfg.DefaultLanguage] = i18n.NewLocalizer(bundle, cfg.DefaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
		matcher:         language.NewMatcher(tags),
		tags:            tags,
	}, nil
}

// Match picks the supported language closest to a platform locale such as
// "en-US" or "pt-BR". Unknown locales yield the default language.
func (l *Localizer) Match(locale string) string {
	if locale == "" {
		return l.defaultLanguage
	}
	_, index, confidence := l.matcher.Match(language.Make(locale))
	if confidence == language.No {
		return l.defaultLanguage
	}
	return l.tags[index].String()
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgHelpPing          = "help_ping"
	MsgHelpTooEarly      = "help_too_early"
	MsgCooldown          = "cooldown"
	MsgAskUsage          = "ask_usage"
	MsgAskFailed         = "ask_failed"
	MsgInputRejected     = "input_rejected"
	MsgTicketCreated     = "ticket_created"
	MsgTicketWelcome     = "ticket_welcome"
	MsgTicketExists      = "ticket_exists"
	MsgTicketClosed      = "ticket_closed"
	MsgTicketNotHere     = "ticket_not_here"
	MsgTicketNotOwner    = "ticket_not_owner"
	MsgTicketFailed      = "ticket_failed"
	MsgMuteUsage         = "mute_usage"
	MsgMuteDone          = "mute_done"
	MsgMuteForbidden     = "mute_forbidden"
	MsgMuteFailed        = "mute_failed"
	MsgLinks             = "links"
	MsgWelcome           = "welcome"
	MsgUnknownCommand    = "unknown_command"
	MsgRateLimitExceeded = "rate_limit_exceeded"
	MsgUnsupported       = "unsupported"
)
