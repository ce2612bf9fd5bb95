package catalog

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var ErrSlugTaken = errors.New("category slug already exists")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type Category struct {
	ID        string    `json:"id"`
	NameAr    string    `json:"name_ar"`
	NameEn    string    `json:"name_en"`
	Slug      string    `json:"slug"`
	Icon      Icon      `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

type CategoryInput struct {
	NameAr string `json:"name_ar"`
	NameEn string `json:"name_en"`
	Slug   string `json:"slug"`
	Icon   string `json:"icon"`
}

// Build validates the input and returns a category ready to insert.
func (in CategoryInput) Build(now time.Time) (Category, error) {
	c := Category{
		NameAr: strings.TrimSpace(in.NameAr),
		NameEn: strings.TrimSpace(in.NameEn),
		Slug:   strings.ToLower(strings.TrimSpace(in.Slug)),
	}
	if c.NameAr == "" {
		return Category{}, &orders.ValidationError{Field: "name_ar", Reason: "required"}
	}
	if c.NameEn == "" {
		return Category{}, &orders.ValidationError{Field: "name_en", Reason: "required"}
	}
	if !slugPattern.MatchString(c.Slug) {
		return Category{}, &orders.ValidationError{Field: "slug", Reason: "must be lowercase words joined by '-'"}
	}
	icon, err := ParseIcon(in.Icon)
	if err != nil {
		return Category{}, err
	}
	c.ID = uuid.NewString()
	c.Icon = icon
	c.CreatedAt = now.UTC()
	return c, nil
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateCategory(ctx context.Context, c Category) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO categories (id, name_ar, name_en, slug, icon, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.NameAr, c.NameEn, c.Slug, string(c.Icon), c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrSlugTaken
	}
	return err
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name_ar, name_en, slug, icon, created_at FROM categories ORDER BY name_en`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		var icon string
		if err := rows.Scan(&c.ID, &c.NameAr, &c.NameEn, &c.Slug, &icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Icon = Icon(icon)
		out = append(out, c)
	}
	return out, rows.Err()
}
