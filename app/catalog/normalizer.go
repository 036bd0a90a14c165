package catalog

import (
	"encoding/json"
	"fmt"

	"golang.org/x/text/language"
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Run flattens the nested directory document into keyed maps and an
// organized site list. A decode failure is fatal for the whole run:
// no partial catalog is usable. When the same language/category pair
// recurs, the last occurrence wins.
func (n *Normalizer) Run(data []byte) (*Directory, error) {
	var contents []LanguageContent
	if err := json.Unmarshal(data, &contents); err != nil {
		return nil, fmt.Errorf("failed to decode directory document: %w", err)
	}

	dir := &Directory{
		Languages:  make(map[string]string),
		Categories: make(map[string]map[string]string),
	}

	for _, lang := range contents {
		code := canonicalLanguageCode(lang.Language)
		dir.Languages[code] = lang.Title

		for _, category := range lang.Categories {
			titles := dir.Categories[category.Slug]
			if titles == nil {
				titles = make(map[string]string)
				dir.Categories[category.Slug] = titles
			}
			titles[code] = category.Title

			for _, site := range category.Sites {
				dir.Sites = append(dir.Sites, OrganizedSite{
					LanguageCode: code,
					CategorySlug: category.Slug,
					Site:         site,
				})
			}
		}
	}

	return dir, nil
}

// canonicalLanguageCode normalizes BCP-47 casing (EN-us -> en-US).
// Codes the matcher cannot parse pass through verbatim so an odd
// directory entry never breaks the run.
func canonicalLanguageCode(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return tag.String()
}
