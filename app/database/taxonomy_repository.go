package database

import (
	"context"
	"fmt"
)

type taxonomyRepository struct {
	h Handle
}

func NewTaxonomyRepository(h Handle) TaxonomyRepository {
	return &taxonomyRepository{h: h}
}

func (r *taxonomyRepository) UpsertLanguage(ctx context.Context, code, title string) error {
	_, err := r.h.ExecContext(ctx, `
		INSERT INTO languages (code, title)
		VALUES (?, ?)
		ON CONFLICT (code) DO UPDATE SET title = excluded.title
	`, code, title)
	if err != nil {
		return fmt.Errorf("failed to upsert language %s: %w", code, err)
	}
	return nil
}

func (r *taxonomyRepository) UpsertCategory(ctx context.Context, slug string) error {
	_, err := r.h.ExecContext(ctx, `
		INSERT INTO categories (slug)
		VALUES (?)
		ON CONFLICT (slug) DO NOTHING
	`, slug)
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", slug, err)
	}
	return nil
}

func (r *taxonomyRepository) UpsertCategoryTitle(ctx context.Context, languageCode, categorySlug, title string) error {
	_, err := r.h.ExecContext(ctx, `
		INSERT INTO category_titles (language_code, category_slug, title)
		VALUES (?, ?, ?)
		ON CONFLICT (language_code, category_slug) DO UPDATE SET title = excluded.title
	`, languageCode, categorySlug, title)
	if err != nil {
		return fmt.Errorf("failed to upsert category title %s/%s: %w", languageCode, categorySlug, err)
	}
	return nil
}

func (r *taxonomyRepository) GetLanguages(ctx context.Context) ([]Language, error) {
	rows, err := r.h.QueryContext(ctx, `SELECT code, title FROM languages ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	defer rows.Close()

	var languages []Language
	for rows.Next() {
		var l Language
		if err := rows.Scan(&l.Code, &l.Title); err != nil {
			return nil, fmt.Errorf("failed to scan language row: %w", err)
		}
		languages = append(languages, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating language rows: %w", err)
	}
	return languages, nil
}
