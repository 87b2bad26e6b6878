package services

import (
	"context"
	"database/sql"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/dbx"
	"github.com/dmitrijs2005/webapp/internal/server/models"
	imagesrepo "github.com/dmitrijs2005/webapp/internal/server/repositories/images"
	usersrepo "github.com/dmitrijs2005/webapp/internal/server/repositories/users"
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// fakeHasher prefixes instead of hashing so tests stay fast.
type fakeHasher struct{}

func (fakeHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (fakeHasher) Compare(h, p string) bool     { return h == "hashed:"+p }

type fakeUsersRepo struct {
	mu      sync.Mutex
	byID    map[string]*models.User
	err     error
	created []*models.User
	updates []models.UserUpdate
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*models.User{}}
	for _, u := range users {
		r.byID[u.ID] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, e := range f.byID {
		if e.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	f.created = append(f.created, &cp)
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, id string, upd models.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.AccountUpdated = upd.UpdatedAt
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeUsersRepo) GetByVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if u.VerificationToken != nil && *u.VerificationToken == token && u.VerificationExpires.After(now) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) MarkVerified(ctx context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Verified = true
	u.VerificationToken = nil
	u.VerificationExpires = nil
	u.AccountUpdated = now
	return nil
}

type fakeImagesRepo struct {
	byUser    map[string]*models.Image
	getErr    error
	createErr error
	deleteErr error
	deleted   []string
}

func newFakeImagesRepo() *fakeImagesRepo {
	return &fakeImagesRepo{byUser: map[string]*models.Image{}}
}

func (f *fakeImagesRepo) Create(ctx context.Context, img *models.Image) (*models.Image, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byUser[img.UserID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	cp := *img
	f.byUser[img.UserID] = &cp
	return img, nil
}

func (f *fakeImagesRepo) GetByUserID(ctx context.Context, userID string) (*models.Image, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	img, ok := f.byUser[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *img
	return &cp, nil
}

func (f *fakeImagesRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for uid, img := range f.byUser {
		if img.ID == id {
			delete(f.byUser, uid)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	i *fakeImagesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Images(db dbx.DBTX) imagesrepo.Repository     { return m.i }

type fakeStore struct {
	objects   map[string]string
	putErr    error
	deleteErr error
	deleted   []string
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string]string{}} }

func (s *fakeStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	var b strings.Builder
	if _, err := io.Copy(&b, body); err != nil {
		return "", err
	}
	s.objects[key] = b.String()
	return "https://bucket.example/" + key, nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type recordingMetrics struct {
	mu      sync.Mutex
	timings []string
	counts  []string
}

func (r *recordingMetrics) Count(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, name)
}

func (r *recordingMetrics) Timing(name string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timings = append(r.timings, name)
}

func (r *recordingMetrics) timed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.timings...)
}
