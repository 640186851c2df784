package i18n_test

import (
	"testing"

	"github.com/guild-helper-bot-go/internal/config"
	"github.com/guild-helper-bot-go/internal/i18n"
	"github.com/stretchr/testify/require"
)

func newLocalizer(t *testing.T) *i18n.Localizer {
	t.Helper()
	l, err := i18n.NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en", "de"},
		Directory:       "../../configs/i18n",
	})
	require.NoError(t, err)
	return l
}

func TestLocalizer_Get(t *testing.T) {
	l := newLocalizer(t)

	require.Equal(t,
		"Too early!\nPlease wait 6m 40s before asking for help again.",
		l.Get("en", i18n.MsgHelpTooEarly, map[string]interface{}{"Remaining": "6m 40s"}),
	)
	require.Equal(t, "Ticket geschlossen.", l.Get("de", i18n.MsgTicketClosed, nil))
	require.Equal(t, "Ticket closed.", l.Get("fr", i18n.MsgTicketClosed, nil))
	require.Equal(t, "no_such_message", l.Get("en", "no_such_message", nil))
}

func TestLocalizer_Match(t *testing.T) {
	l := newLocalizer(t)

	tests := map[string]string{
		"":      "en",
		"en-US": "en",
		"de":    "de",
		"de-AT": "de",
		"ja":    "en",
	}
	for locale, want := range tests {
		t.Run(locale, func(t *testing.T) {
			require.Equal(t, want, l.Match(locale))
		})
	}
}

func TestNewLocalizer_MissingFile(t *testing.T) {
	_, err := i18n.NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"xx"},
		Directory:       t.TempDir(),
	})
	require.Error(t, err)
}
