package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	dbpkg "github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/model"
)

// itemColumns selects an item joined with its owner. The quoted aliases let
// sqlx fill model.Item.Owner.
const itemColumns = `i.id, i.title, i.description, i.type, i.category, i.location, i.date,
	i.status, i.contact_info, i.user_id, i.created_at, i.updated_at,
	i.image IS NOT NULL AS has_image,
	u.id AS "owner.id", u.username AS "owner.username", u.email AS "owner.email",
	u.phone_number AS "owner.phone_number", u.role AS "owner.role"`

const itemFrom = ` FROM items i JOIN users u ON u.id = i.user_id`

// NewItem holds the columns written when an item is created.
type NewItem struct {
	Title       string
	Description string
	Type        model.ItemType
	Category    string
	Location    string
	Date        model.Date
	Image       []byte
	Status      model.ItemStatus
	ContactInfo string
	UserID      int64
}

// ItemUpdate lists the columns to overwrite. Nil fields are left untouched.
type ItemUpdate struct {
	Title       *string
	Description *string
	Type        *model.ItemType
	Category    *string
	Location    *string
	Date        *model.Date
	Status      *model.ItemStatus
	ContactInfo *string
	Image       []byte
}

// CreateItem creates a new item.
func CreateItem(ctx context.Context, db *sqlx.DB, n NewItem) (*model.Item, error) {
	var image any
	if len(n.Image) > 0 {
		image = n.Image
	}

	var id int64
	err := db.QueryRowxContext(ctx, db.Rebind(
		`INSERT INTO items (title, description, type, category, location, date, image, status, contact_info, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		n.Title, n.Description, n.Type, n.Category, n.Location, n.Date, image, n.Status, n.ContactInfo, n.UserID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sqlx.DB, id int64) (*model.Item, error) {
	item := &model.Item{}
	err := db.GetContext(ctx, item, db.Rebind(`SELECT `+itemColumns+itemFrom+` WHERE i.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns all items, optionally filtered by type, newest first.
func ListItems(ctx context.Context, db *sqlx.DB, itemType *model.ItemType) ([]model.Item, error) {
	var items []model.Item
	var err error

	if itemType != nil {
		err = db.SelectContext(ctx, &items, db.Rebind(
			`SELECT `+itemColumns+itemFrom+` WHERE i.type = ? ORDER BY i.id DESC`), *itemType)
	} else {
		err = db.SelectContext(ctx, &items, `SELECT `+itemColumns+itemFrom+` ORDER BY i.id DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// ListItemsByUser returns the items owned by a user, newest first.
func ListItemsByUser(ctx context.Context, db *sqlx.DB, userID int64) ([]model.Item, error) {
	var items []model.Item
	err := db.SelectContext(ctx, &items, db.Rebind(
		`SELECT `+itemColumns+itemFrom+` WHERE i.user_id = ? ORDER BY i.id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("listing items by user: %w", err)
	}
	return items, nil
}

// SearchItems returns items whose title, description, location or category
// contains query (case-insensitive). A nil itemType matches every type.
func SearchItems(ctx context.Context, db *sqlx.DB, query string, itemType *model.ItemType) ([]model.Item, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	var typeArg any
	if itemType != nil {
		typeArg = string(*itemType)
	}

	lower := dbpkg.Lower(db)

	var items []model.Item
	err := db.SelectContext(ctx, &items, db.Rebind(
		`SELECT `+itemColumns+itemFrom+`
		 WHERE (`+lower+`(i.title) LIKE ? ESCAPE '\'
		     OR `+lower+`(i.description) LIKE ? ESCAPE '\'
		     OR `+lower+`(i.location) LIKE ? ESCAPE '\'
		     OR `+lower+`(i.category) LIKE ? ESCAPE '\')
		   AND (CAST(? AS TEXT) IS NULL OR i.type = ?)
		 ORDER BY i.id DESC`),
		pattern, pattern, pattern, pattern, typeArg, typeArg,
	)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	return items, nil
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// UpdateItem overwrites the supplied columns of an item.
func UpdateItem(ctx context.Context, db *sqlx.DB, id int64, u ItemUpdate) error {
	var sets []string
	var args []any

	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.Type != nil {
		set("type", *u.Type)
	}
	if u.Category != nil {
		set("category", *u.Category)
	}
	if u.Location != nil {
		set("location", *u.Location)
	}
	if u.Date != nil {
		set("date", *u.Date)
	}
	if u.Status != nil {
		set("status", *u.Status)
	}
	if u.ContactInfo != nil {
		set("contact_info", *u.ContactInfo)
	}
	if len(u.Image) > 0 {
		set("image", u.Image)
	}

	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	_, err := db.ExecContext(ctx, db.Rebind(
		`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem removes an item.
func DeleteItem(ctx context.Context, db *sqlx.DB, id int64) error {
	_, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data, or nil if the item does not
// exist or has no image.
func GetItemImage(ctx context.Context, db *sqlx.DB, id int64) ([]byte, error) {
	var image []byte
	err := db.QueryRowxContext(ctx, db.Rebind(`SELECT image FROM items WHERE id = ?`), id).Scan(&image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item image: %w", err)
	}
	if len(image) == 0 {
		return nil, nil
	}
	return image, nil
}
