package voice

import (
	"context"
	"fmt"
	"html"
	"strings"

	"google.golang.org/api/translate/v2"
)

// Translator converts text between languages. An empty source lets the
// backend detect it.
type Translator interface {
	Translate(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// GoogleTranslator uses the Cloud Translation v2 API.
type GoogleTranslator struct {
	svc *translate.Service
}

// NewGoogleTranslator wraps a translate service.
func NewGoogleTranslator(svc *translate.Service) *GoogleTranslator {
	return &GoogleTranslator{svc: svc}
}

func (g *GoogleTranslator) Translate(ctx context.Context, texts []string, source, target string) ([]string, error) {
	call := g.svc.Translations.List(texts, target).Format("text").Context(ctx)
	if source != "" {
		call = call.Source(source)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("translating to %s: %w", target, err)
	}
	if len(resp.Translations) != len(texts) {
		return nil, fmt.Errorf("translating to %s: got %d results for %d texts", target, len(resp.Translations), len(texts))
	}
	out := make([]string, len(texts))
	for i, t := range resp.Translations {
		out[i] = html.UnescapeString(t.TranslatedText)
	}
	return out, nil
}

// baseLanguage returns the primary subtag of a BCP 47 code: "hi-IN" -> "hi".
func baseLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	return code
}

// isEnglish reports whether code names an English variant.
func isEnglish(code string) bool {
	return code == "" || baseLanguage(code) == "en"
}
