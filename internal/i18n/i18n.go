// Package i18n holds the display labels used in status and ban list embeds.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLanguage is used when LANGUAGE is unset and as the fallback for missing keys.
const DefaultLanguage = "en"

//go:embed lang/*.yaml
var langFS embed.FS

// Catalog maps label keys to text in one language.
type Catalog struct {
	lang     string
	labels   map[string]string
	fallback map[string]string
}

// Load returns the catalog for lang. Keys missing from lang fall back to English.
func Load(lang string) (*Catalog, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = DefaultLanguage
	}

	fallback, err := readLabels(DefaultLanguage)
	if err != nil {
		return nil, err
	}
	if lang == DefaultLanguage {
		return &Catalog{lang: lang, labels: fallback, fallback: fallback}, nil
	}

	labels, err := readLabels(lang)
	if err != nil {
		return nil, err
	}
	return &Catalog{lang: lang, labels: labels, fallback: fallback}, nil
}

// MustLoad is Load for languages known to be embedded; it panics otherwise.
func MustLoad(lang string) *Catalog {
	c, err := Load(lang)
	if err != nil {
		panic(err)
	}
	return c
}

// Languages lists the embedded languages.
func Languages() []string {
	entries, _ := fs.ReadDir(langFS, "lang")
	var out []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			out = append(out, name)
		}
	}
	return out
}

func readLabels(lang string) (map[string]string, error) {
	raw, err := langFS.ReadFile("lang/" + lang + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unsupported language %q (have %s)", lang, strings.Join(Languages(), ", "))
	}

	labels := make(map[string]string)
	if err := yaml.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("parsing %s translations: %w", lang, err)
	}
	return labels, nil
}

// Language returns the catalog's language code.
func (c *Catalog) Language() string { return c.lang }

// T returns the label for key, the English label when the language lacks it,
// or the key itself as a last resort.
func (c *Catalog) T(key string) string {
	if c == nil {
		return key
	}
	if v, ok := c.labels[key]; ok && v != "" {
		return v
	}
	if v, ok := c.fallback[key]; ok && v != "" {
		return v
	}
	return key
}
