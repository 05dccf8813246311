package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/store"
)

// ImageNormalizer rewrites uploaded image bytes before they are stored.
type ImageNormalizer interface {
	Normalize(data []byte) ([]byte, error)
}

// Catalog manages item listings.
type Catalog struct {
	DB *sqlx.DB

	// Images, when set, processes every upload. Nil stores bytes as uploaded.
	Images ImageNormalizer

	// Now is the clock used for default dates.
	Now func() time.Time
}

// NewCatalog returns a Catalog using the system clock.
func NewCatalog(db *sqlx.DB, images ImageNormalizer) *Catalog {
	return &Catalog{DB: db, Images: images, Now: time.Now}
}

// NewItem carries the fields of a new listing. An empty Date means today.
type NewItem struct {
	Title       string
	Description string
	Type        model.ItemType
	Category    string
	Location    string
	Date        string
	Image       []byte
	ContactInfo *string
}

// ItemChanges lists the fields to change. Nil pointers, an empty Date and an
// empty Image leave the stored value alone.
type ItemChanges struct {
	Title       *string
	Description *string
	Type        *model.ItemType
	Category    *string
	Location    *string
	Date        *string
	Status      *model.ItemStatus
	Image       []byte
	ContactInfo *string
}

// ListAll returns every item, optionally only those of one type.
func (c *Catalog) ListAll(ctx context.Context, itemType *model.ItemType) ([]model.Item, error) {
	return store.ListItems(ctx, c.DB, itemType)
}

// ListByOwner returns the items posted by a user.
func (c *Catalog) ListByOwner(ctx context.Context, userID int64) ([]model.Item, error) {
	return store.ListItemsByUser(ctx, c.DB, userID)
}

// Get returns the item, or nil if there is none.
func (c *Catalog) Get(ctx context.Context, id int64) (*model.Item, error) {
	return store.GetItem(ctx, c.DB, id)
}

// Create posts a new item owned by actor. The status is always OPEN.
func (c *Catalog) Create(ctx context.Context, n NewItem, actor *model.User) (*model.Item, error) {
	date := model.NewDate(c.Now())
	if n.Date != "" {
		parsed, err := parseDate(n.Date)
		if err != nil {
			return nil, err
		}
		date = parsed
	}

	image, err := c.prepareImage(n.Image)
	if err != nil {
		return nil, err
	}

	var contact string
	if n.ContactInfo != nil {
		contact = *n.ContactInfo
	}

	return store.CreateItem(ctx, c.DB, store.NewItem{
		Title:       n.Title,
		Description: n.Description,
		Type:        n.Type,
		Category:    n.Category,
		Location:    n.Location,
		Date:        date,
		Image:       image,
		Status:      model.ItemStatusOpen,
		ContactInfo: contact,
		UserID:      actor.ID,
	})
}

// Update applies ch to the item. Only the owner may update; admins get no
// override here.
func (c *Catalog) Update(ctx context.Context, id int64, ch ItemChanges, actor *model.User) (*model.Item, error) {
	item, err := c.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ownedBy(item, actor) {
		return nil, fmt.Errorf("%w to update this item", ErrNotAuthorized)
	}

	u := store.ItemUpdate{
		Title:       ch.Title,
		Description: ch.Description,
		Type:        ch.Type,
		Category:    ch.Category,
		Location:    ch.Location,
		Status:      ch.Status,
		ContactInfo: ch.ContactInfo,
	}

	if ch.Date != nil && *ch.Date != "" {
		parsed, err := parseDate(*ch.Date)
		if err != nil {
			return nil, err
		}
		u.Date = &parsed
	}

	u.Image, err = c.prepareImage(ch.Image)
	if err != nil {
		return nil, err
	}

	if err := store.UpdateItem(ctx, c.DB, id, u); err != nil {
		return nil, err
	}
	return c.mustGet(ctx, id)
}

// Delete removes the item. The owner and admins may delete.
func (c *Catalog) Delete(ctx context.Context, id int64, actor *model.User) error {
	item, err := c.mustGet(ctx, id)
	if err != nil {
		return err
	}

	if !ownedBy(item, actor) && !model.RoleAtLeast(actor.Role, model.RoleAdmin) {
		return fmt.Errorf("%w to delete this item", ErrNotAuthorized)
	}

	return store.DeleteItem(ctx, c.DB, id)
}

// Search matches query against title, description, location and category.
// A nil itemType searches both types.
func (c *Catalog) Search(ctx context.Context, query string, itemType *model.ItemType) ([]model.Item, error) {
	return store.SearchItems(ctx, c.DB, query, itemType)
}

// GetImage returns the stored image, or nil when the item or image is missing.
func (c *Catalog) GetImage(ctx context.Context, id int64) ([]byte, error) {
	return store.GetItemImage(ctx, c.DB, id)
}

func (c *Catalog) mustGet(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, c.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func (c *Catalog) prepareImage(data []byte) ([]byte, error) {
	if len(data) == 0 || c.Images == nil {
		return data, nil
	}
	out, err := c.Images.Normalize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return out, nil
}

// ownedBy compares by username, the identity carried in the token.
func ownedBy(item *model.Item, user *model.User) bool {
	return item.Owner != nil && item.Owner.Username == user.Username
}

func parseDate(s string) (model.Date, error) {
	d, err := model.ParseDate(s)
	if err != nil {
		return model.Date{}, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, s)
	}
	return d, nil
}
