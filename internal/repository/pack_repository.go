package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"packshop/internal/interfaces"
	"packshop/internal/models"
)

type packRepository struct {
	db *sqlx.DB
}

func NewPackRepository(db *sqlx.DB) interfaces.PackRepository {
	return &packRepository{db: db}
}

const packColumns = `id, name, description, price, category, images, features, created_at, updated_at`

func (r *packRepository) Create(ctx context.Context, pack *models.Pack) error {
	images := pack.Images
	if images == nil {
		images = pq.StringArray{}
	}
	features := pack.Features
	if features == nil {
		features = pq.StringArray{}
	}

	query := `
		INSERT INTO packs (id, name, description, price, category, images, features)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		pack.ID, pack.Name, pack.Description, pack.Price, pack.Category, images, features,
	).Scan(&pack.CreatedAt, &pack.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert pack: %w", err)
	}
	pack.Images = images
	pack.Features = features
	return nil
}

func (r *packRepository) GetByID(ctx context.Context, id string) (*models.Pack, error) {
	var p models.Pack
	err := r.db.GetContext(ctx, &p, `SELECT `+packColumns+` FROM packs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *packRepository) List(ctx context.Context, filter interfaces.PackFilter) ([]*models.Pack, error) {
	query := `SELECT ` + packColumns + ` FROM packs`
	var args []any
	if filter.Category != "" {
		query += ` WHERE category = $1`
		args = append(args, filter.Category)
	}
	query += ` ORDER BY created_at DESC`

	packs := []*models.Pack{}
	if err := r.db.SelectContext(ctx, &packs, query, args...); err != nil {
		return nil, fmt.Errorf("list packs: %w", err)
	}
	return packs, nil
}

func (r *packRepository) Update(ctx context.Context, id string, req *models.UpdatePackRequest) (*models.Pack, error) {
	sets := []string{}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Name != nil {
		add("name", *req.Name)
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.Price != nil {
		add("price", *req.Price)
	}
	if req.Category != nil {
		add("category", *req.Category)
	}
	if req.Images != nil {
		add("images", pq.StringArray(req.Images))
	}
	if req.Features != nil {
		add("features", pq.StringArray(req.Features))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE packs SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + packColumns

	var p models.Pack
	if err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackNotFound
		}
		return nil, fmt.Errorf("update pack: %w", err)
	}
	return &p, nil
}

func (r *packRepository) AppendImages(ctx context.Context, id string, urls []string, limit int) (*models.Pack, error) {
	query := `
		UPDATE packs
		SET images = images || $2::text[], updated_at = NOW()
		WHERE id = $1 AND cardinality(images) + cardinality($2::text[]) <= $3
		RETURNING ` + packColumns

	var p models.Pack
	err := r.db.QueryRowxContext(ctx, query, id, pq.StringArray(urls), limit).StructScan(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("append pack images: %w", err)
	}

	// No row updated: either the pack is gone or it is full.
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM packs WHERE id = $1)`, id); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrPackNotFound
	}
	return nil, ErrTooManyImages
}

func (r *packRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM packs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPackNotFound
	}
	return nil
}
