package auth

import (
	"context"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleRepo reads grants from the user_roles table.
type RoleRepo struct{ DB *pgxpool.Pool }

func (r *RoleRepo) RolesFor(ctx context.Context, userID string) ([]orders.Role, error) {
	rows, err := r.DB.Query(ctx, `SELECT role FROM user_roles WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Role
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		out = append(out, orders.Role(role))
	}
	return out, rows.Err()
}

// Grant dipakai oleh perintah CLI grant-admin.
func (r *RoleRepo) Grant(ctx context.Context, userID string, role orders.Role) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING`, userID, string(role))
	return err
}
