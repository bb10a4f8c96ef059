package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"foodhub/models"
)

// Documents live in a single JSONB table. Bodies are relaxed extended JSON,
// so ObjectID-typed fields keep their {"$oid": ...} shape and stay
// distinguishable from plain strings.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        BIGSERIAL,
	collection TEXT  NOT NULL,
	id         TEXT  NOT NULL,
	body       JSONB NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE UNIQUE INDEX IF NOT EXISTS documents_vendor_email
	ON documents ((body->>'email')) WHERE collection = 'vendors';
`

func connectPostgres(ctx context.Context, url string) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	// Serverless Postgres suspends idle compute; avoid holding idle connections.
	db.SetMaxIdleConns(0)
	db.SetMaxOpenConns(10)

	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	return &Store{
		Backend:     "postgres",
		Restaurants: &pgCollection[models.Restaurant, *models.Restaurant]{db: db, name: RestaurantsCollection},
		Items:       &pgCollection[models.Item, *models.Item]{db: db, name: ItemsCollection},
		Vendors:     &pgCollection[models.Vendor, *models.Vendor]{db: db, name: VendorsCollection},
		close:       func(context.Context) error { return db.Close() },
	}, nil
}

type pgCollection[T any, PT docPtr[T]] struct {
	db   *sql.DB
	name string
}

// pgWhere renders q as a WHERE clause. args[0] is reserved for the
// collection name.
func pgWhere(q models.Query) (string, []any) {
	args := []any{nil}
	clause := func(c models.Clause) string {
		args = append(args, c.Value)
		field := pq.QuoteLiteral(c.Field)
		if c.Native {
			return fmt.Sprintf("COALESCE(body->%s->>'$oid' = $%d, false)", field, len(args))
		}
		return fmt.Sprintf("COALESCE(jsonb_typeof(body->%s) = 'string' AND body->>%s = $%d, false)", field, field, len(args))
	}

	conds := []string{"collection = $1"}
	if len(q.Any) > 0 {
		parts := make([]string, 0, len(q.Any))
		for _, c := range q.Any {
			parts = append(parts, clause(c))
		}
		conds = append(conds, "("+strings.Join(parts, " OR ")+")")
	}
	for _, c := range q.All {
		conds = append(conds, clause(c))
	}
	for _, c := range q.Not {
		conds = append(conds, "NOT "+clause(c))
	}
	return strings.Join(conds, " AND "), args
}

func (c *pgCollection[T, PT]) query(ctx context.Context, q models.Query, limit int) ([]*T, error) {
	where, args := pgWhere(q)
	args[0] = c.name
	stmt := "SELECT body::text FROM documents WHERE " + where + " ORDER BY seq"
	if limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s query: %w", c.name, err)
	}
	defer rows.Close()

	var docs []*T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("%s scan: %w", c.name, err)
		}
		doc := new(T)
		if err := bson.UnmarshalExtJSON([]byte(body), false, doc); err != nil {
			return nil, fmt.Errorf("%s decode: %w", c.name, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (c *pgCollection[T, PT]) FindOne(ctx context.Context, q models.Query) (*T, error) {
	docs, err := c.query(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (c *pgCollection[T, PT]) Find(ctx context.Context, q models.Query) ([]*T, error) {
	return c.query(ctx, q, 0)
}

func (c *pgCollection[T, PT]) Count(ctx context.Context, q models.Query) (int64, error) {
	where, args := pgWhere(q)
	args[0] = c.name
	var n int64
	if err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM documents WHERE "+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s count: %w", c.name, err)
	}
	return n, nil
}

func (c *pgCollection[T, PT]) Insert(ctx context.Context, doc *T) error {
	prepareInsert[T, PT](doc)
	body, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return fmt.Errorf("%s encode: %w", c.name, err)
	}
	_, err = c.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3::jsonb)",
		c.name, PT(doc).StorageID().Hex(), string(body))
	if err != nil {
		return fmt.Errorf("%s insert: %w", c.name, pgError(err))
	}
	return nil
}

func (c *pgCollection[T, PT]) Replace(ctx context.Context, doc *T) error {
	if err := prepareReplace[T, PT](doc); err != nil {
		return err
	}
	body, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return fmt.Errorf("%s encode: %w", c.name, err)
	}
	res, err := c.db.ExecContext(ctx,
		"UPDATE documents SET body = $3::jsonb WHERE collection = $1 AND id = $2",
		c.name, PT(doc).StorageID().Hex(), string(body))
	if err != nil {
		return fmt.Errorf("%s replace: %w", c.name, pgError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *pgCollection[T, PT]) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2", c.name, id.Hex())
	if err != nil {
		return fmt.Errorf("%s delete: %w", c.name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *pgCollection[T, PT]) DeleteAll(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM documents WHERE collection = $1", c.name); err != nil {
		return fmt.Errorf("%s delete all: %w", c.name, err)
	}
	return nil
}

func pgError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
