package stores

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/tallyhq/tally/internal/client/localstore"
	"github.com/tallyhq/tally/internal/client/models"
	"github.com/tallyhq/tally/internal/client/remote"
	"github.com/tallyhq/tally/internal/client/sync"
	"github.com/tallyhq/tally/internal/client/syncqueue"
	"github.com/tallyhq/tally/internal/common"
	"github.com/tallyhq/tally/internal/logging"
)

// Remote collections owned by the contacts store.
const (
	CollectionContacts   = "contacts"
	CollectionCategories = "categories"
)

// ContactsStore owns the address book and its category buckets. The two
// record families live in separate collections with separate reconcilers;
// Sync runs both, categories first so contact references resolve.
type ContactsStore struct {
	notifier
	contacts   *localstore.ContactRepository
	categories *localstore.CategoryRepository
	d          domain[*models.Contact]
	dc         domain[*models.Category]
	logger     logging.Logger
	now        func() time.Time

	mu           gosync.RWMutex
	contactList  []*models.Contact
	categoryList []*models.Category
}

func NewContactsStore(
	contacts *localstore.ContactRepository,
	categories *localstore.CategoryRepository,
	queue *syncqueue.Queue,
	store remote.Store,
	logger logging.Logger,
	online func() bool,
) *ContactsStore {
	s := &ContactsStore{
		contacts:   contacts,
		categories: categories,
		logger:     logger.With("store", "contacts"),
		now:        time.Now,
	}

	crec := sync.NewReconciler(CollectionContacts, contacts, store, logger, online,
		func(c *models.Contact) models.ValidationResult { return c.Validate() },
		func() *models.Contact { return &models.Contact{} },
	)
	s.d = domain[*models.Contact]{
		collection: CollectionContacts,
		queue:      queue,
		store:      store,
		online:     online,
		logger:     s.logger,
		rec:        crec,
		markSync:   contacts.MarkSync,
	}
	queue.RegisterMarker(CollectionContacts, contacts.MarkSync)

	catrec := sync.NewReconciler(CollectionCategories, categories, store, logger, online,
		func(c *models.Category) models.ValidationResult { return c.Validate() },
		func() *models.Category { return &models.Category{} },
	)
	s.dc = domain[*models.Category]{
		collection: CollectionCategories,
		queue:      queue,
		store:      store,
		online:     online,
		logger:     s.logger,
		rec:        catrec,
		markSync:   categories.MarkSync,
	}
	queue.RegisterMarker(CollectionCategories, categories.MarkSync)

	return s
}

func (s *ContactsStore) Load(ctx context.Context) error {
	contacts, err := s.contacts.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading contacts: %w", err)
	}
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}
	s.mu.Lock()
	s.contactList = contacts
	s.categoryList = categories
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *ContactsStore) Contacts() []*models.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Contact, len(s.contactList))
	copy(out, s.contactList)
	return out
}

func (s *ContactsStore) Categories() []*models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Category, len(s.categoryList))
	copy(out, s.categoryList)
	return out
}

// ContactsByCategory lists contacts referencing the given category key.
func (s *ContactsStore) ContactsByCategory(ctx context.Context, categoryKey string) ([]*models.Contact, error) {
	return s.contacts.GetByCategory(ctx, categoryKey)
}

// AddCategory validates name uniqueness within its scope before writing.
func (s *ContactsStore) AddCategory(ctx context.Context, c *models.Category) error {
	if err := validationError(c.Validate()); err != nil {
		return err
	}
	if _, err := s.categories.GetByKey(ctx, c.Scope, c.Name); err == nil {
		return fmt.Errorf("%w: category %q already exists in scope %s", common.ErrValidation, c.Name, c.Scope)
	} else if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	c.Touch(s.now())
	if _, err := s.categories.Insert(ctx, c); err != nil {
		return err
	}
	s.dc.mirrorWrite(ctx, c, localstore.OpAdd)
	return s.Load(ctx)
}

func (s *ContactsStore) DeleteCategory(ctx context.Context, id int64) error {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	dependents, err := s.contacts.GetByCategory(ctx, c.Key())
	if err != nil {
		return err
	}
	if len(dependents) > 0 {
		return fmt.Errorf("%w: category %q still has %d contacts", common.ErrValidation, c.Name, len(dependents))
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.dc.mirrorDelete(ctx, c.ID, c.RemoteID)
	return s.Load(ctx)
}

// Add validates the contact, including that its category reference
// resolves to an existing category.
func (s *ContactsStore) Add(ctx context.Context, c *models.Contact) error {
	if err := validationError(c.Validate()); err != nil {
		return err
	}
	if err := s.checkCategoryRef(ctx, c.CategoryID); err != nil {
		return err
	}
	s.warnNameCollision(ctx, c)
	c.Touch(s.now())
	if _, err := s.contacts.Insert(ctx, c); err != nil {
		return err
	}
	s.d.mirrorWrite(ctx, c, localstore.OpAdd)
	return s.Load(ctx)
}

// warnNameCollision flags a contact sharing a name with an existing entry
// under a different key. Matching on name alone could be two different
// people, so the collision is surfaced in the log and nothing more.
func (s *ContactsStore) warnNameCollision(ctx context.Context, c *models.Contact) {
	for _, existing := range s.Contacts() {
		if existing.ID != c.ID && existing.NameKey() == c.NameKey() && existing.Key() != c.Key() {
			s.logger.Warn(ctx, "contact name matches an existing entry",
				"name", c.Name, "existingId", existing.ID)
			return
		}
	}
}

func (s *ContactsStore) Update(ctx context.Context, c *models.Contact) error {
	if err := validationError(c.Validate()); err != nil {
		return err
	}
	if err := s.checkCategoryRef(ctx, c.CategoryID); err != nil {
		return err
	}
	c.Touch(s.now())
	if err := s.contacts.Update(ctx, c); err != nil {
		return err
	}
	s.d.mirrorWrite(ctx, c, localstore.OpUpdate)
	return s.Load(ctx)
}

func (s *ContactsStore) Delete(ctx context.Context, id int64) error {
	c, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.contacts.Delete(ctx, id); err != nil {
		return err
	}
	s.d.mirrorDelete(ctx, c.ID, c.RemoteID)
	return s.Load(ctx)
}

// checkCategoryRef requires that the referenced category exists locally.
// Contacts reference categories by natural key so the link survives
// syncing across devices.
func (s *ContactsStore) checkCategoryRef(ctx context.Context, key string) error {
	for _, c := range s.Categories() {
		if c.Key() == key {
			return nil
		}
	}
	// Snapshot may be stale; fall back to the store before rejecting.
	categories, err := s.categories.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, c := range categories {
		if c.Key() == key {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown category reference %q", common.ErrValidation, key)
}

// Sync reconciles categories first, then contacts.
func (s *ContactsStore) Sync(ctx context.Context) error {
	if err := s.dc.rec.Sync(ctx); err != nil {
		_ = s.Load(ctx)
		return err
	}
	err := s.d.rec.Sync(ctx)
	if lerr := s.Load(ctx); lerr != nil && err == nil {
		err = lerr
	}
	return err
}

func (s *ContactsStore) SyncState() sync.SyncState {
	return s.d.rec.State()
}

func (s *ContactsStore) CategorySyncState() sync.SyncState {
	return s.dc.rec.State()
}
