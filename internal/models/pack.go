package models

import (
	"time"

	"github.com/lib/pq"
)

type PackCategory string

const (
	CategoryAnniversaire        PackCategory = "anniversaire"
	CategoryMariage             PackCategory = "mariage"
	CategoryEntreprise          PackCategory = "entreprise"
	CategoryAutre               PackCategory = "autre"
	CategoryAnniversaireBallons PackCategory = "anniversaireballons"
)

const MaxPackImages = 10

func PackCategories() []PackCategory {
	return []PackCategory{
		CategoryAnniversaire,
		CategoryMariage,
		CategoryEntreprise,
		CategoryAutre,
		CategoryAnniversaireBallons,
	}
}

func (c PackCategory) Valid() bool {
	for _, known := range PackCategories() {
		if c == known {
			return true
		}
	}
	return false
}

type Pack struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Description string         `db:"description" json:"description"`
	Price       float64        `db:"price" json:"price"`
	Category    PackCategory   `db:"category" json:"category"`
	Images      pq.StringArray `db:"images" json:"images"`
	Features    pq.StringArray `db:"features" json:"features"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

type CreatePackRequest struct {
	Name        string       `json:"name" validate:"required,min=3,max=100"`
	Description string       `json:"description" validate:"required,min=10,max=1000"`
	Price       float64      `json:"price" validate:"required,gt=0,lte=10000"`
	Category    PackCategory `json:"category" validate:"required,oneof=anniversaire mariage entreprise autre anniversaireballons"`
	Images      []string     `json:"images" validate:"required,min=1,max=10,dive,url"`
	Features    []string     `json:"features" validate:"required,min=1,max=20,dive,required"`
}

// UpdatePackRequest carries a partial update; nil fields are left untouched.
type UpdatePackRequest struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Description *string       `json:"description,omitempty" validate:"omitempty,min=10,max=1000"`
	Price       *float64      `json:"price,omitempty" validate:"omitempty,gt=0,lte=10000"`
	Category    *PackCategory `json:"category,omitempty" validate:"omitempty,oneof=anniversaire mariage entreprise autre anniversaireballons"`
	Images      []string      `json:"images,omitempty" validate:"omitempty,min=1,max=10,dive,url"`
	Features    []string      `json:"features,omitempty" validate:"omitempty,min=1,max=20,dive,required"`
}

func (r *UpdatePackRequest) Empty() bool {
	return r.Name == nil && r.Description == nil && r.Price == nil &&
		r.Category == nil && r.Images == nil && r.Features == nil
}

type PackListResponse struct {
	Count int     `json:"count"`
	Packs []*Pack `json:"packs"`
}
