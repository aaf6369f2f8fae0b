package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		lang string
		key  string
		want string
	}{
		{"", "uptime", "Uptime"},
		{"en", "players_online", "Players Online"},
		{"DE", "uptime", "Laufzeit"},
		{"de", "server_online", "Online"},
	}

	for _, tt := range tests {
		c, err := Load(tt.lang)
		require.NoError(t, err, tt.lang)
		assert.Equal(t, tt.want, c.T(tt.key), "%s/%s", tt.lang, tt.key)
	}
}

func TestLoad_UnknownLanguage(t *testing.T) {
	_, err := Load("xx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "en")
}

func TestT_Fallbacks(t *testing.T) {
	c := &Catalog{
		lang:     "de",
		labels:   map[string]string{"uptime": "Laufzeit"},
		fallback: map[string]string{"uptime": "Uptime", "player_names": "Player Names"},
	}
	assert.Equal(t, "Laufzeit", c.T("uptime"))
	assert.Equal(t, "Player Names", c.T("player_names"))
	assert.Equal(t, "no_such_key", c.T("no_such_key"))

	var nilCatalog *Catalog
	assert.Equal(t, "uptime", nilCatalog.T("uptime"))
}

func TestLanguages_AllComplete(t *testing.T) {
	en, err := readLabels(DefaultLanguage)
	require.NoError(t, err)

	langs := Languages()
	assert.Contains(t, langs, "en")
	assert.Contains(t, langs, "de")

	for _, lang := range langs {
		labels, err := readLabels(lang)
		require.NoError(t, err, lang)
		for key := range en {
			assert.NotEmpty(t, labels[key], "%s is missing %q", lang, key)
		}
	}
}
