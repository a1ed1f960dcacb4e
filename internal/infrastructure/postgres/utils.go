package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/Abastecimiento-api/internal/domain"
)

// Querier abstrae pool y tx: los repositorios funcionan con cualquiera de los dos.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// classify traduce los códigos SQLSTATE conocidos a errores de dominio conservando el detalle.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var kind error
	switch pgErr.Code {
	case "23505": // unique_violation
		kind = domain.ErrDuplicate
	case "23514": // check_violation
		kind = domain.ErrConflict
	case "23503": // foreign_key_violation
		kind = domain.ErrNotFound
	case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
		kind = domain.ErrTransient
	case "42P01", "42703": // undefined_table, undefined_column: esquema sin migrar
		kind = domain.ErrTransient
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w (%s: %s)", op, kind, pgErr.Code, pgErr.Message)
}

// withSavepoint ejecuta fn bajo un SAVEPOINT: si falla, revierte solo hasta el savepoint y la
// transacción sigue utilizable (p. ej. tras una violación de unicidad esperada).
func withSavepoint(ctx context.Context, q Querier, name string, fn func() error) error {
	if _, err := q.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return classify("savepoint", err)
	}
	if err := fn(); err != nil {
		if _, rerr := q.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); rerr != nil {
			return classify("rollback to savepoint", rerr)
		}
		return err
	}
	if _, err := q.Exec(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return classify("release savepoint", err)
	}
	return nil
}

// collect recorre rows aplicando scan y devuelve el slice resultante.
func collect[T any](rows pgx.Rows, op string, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	out := make([]*T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

// noRows devuelve (nil, nil) ante pgx.ErrNoRows, siguiendo la convención de los Get.
func noRows[T any](v *T, err error, op string) (*T, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(op, err)
	}
	return v, nil
}
