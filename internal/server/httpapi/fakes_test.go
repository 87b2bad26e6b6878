package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/cryptox"
	"github.com/dmitrijs2005/webapp/internal/server/models"
	"github.com/dmitrijs2005/webapp/internal/server/services"
)

type fakeAccount struct {
	user     models.User
	password string
	hash     string
	token    string
}

// fakeUsers is an in-memory UserService with plain text passwords.
type fakeUsers struct {
	mu        sync.Mutex
	accounts  map[string]*fakeAccount
	authCalls int
	updates   []services.UpdateUserInput
	fail      error
	// hasher, when set, stores passwords created or updated through the
	// service contract as real hashes.
	hasher cryptox.Hasher
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{accounts: map[string]*fakeAccount{}}
}

func (f *fakeUsers) add(email, password string, verified bool, token string) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &fakeAccount{
		user: models.User{ID: uuid.NewString(), Email: email, FirstName: "Jo", LastName: "Do",
			AccountCreated: now, AccountUpdated: now, Verified: verified},
		password: password,
		token:    token,
	}
	f.accounts[a.user.ID] = a
	return &a.user
}

func (f *fakeUsers) byEmail(email string) *fakeAccount {
	for _, a := range f.accounts {
		if a.user.Email == email {
			return a
		}
	}
	return nil
}

func (f *fakeUsers) Create(ctx context.Context, in services.CreateUserInput) (*models.User, error) {
	if in.Email == "" || in.FirstName == "" || in.LastName == "" || len(in.Password) < 6 {
		return nil, common.ErrorValidation
	}
	f.mu.Lock()
	exists := f.byEmail(in.Email) != nil
	f.mu.Unlock()
	if exists {
		return nil, common.ErrorAlreadyExists
	}
	hash, err := f.hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := f.add(in.Email, in.Password, false, "tok-"+in.Email)
	f.mu.Lock()
	f.accounts[u.ID].hash = hash
	f.mu.Unlock()
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) hash(password string) (string, error) {
	if f.hasher == nil {
		return "", nil
	}
	h, err := f.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return h, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := a.user
	return &cp, nil
}

func (f *fakeUsers) Update(ctx context.Context, id string, in services.UpdateUserInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return common.ErrorNotFound
	}
	if in.FirstName == nil && in.LastName == nil && in.Password == nil {
		return common.ErrorValidation
	}
	if in.FirstName != nil {
		a.user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		a.user.LastName = *in.LastName
	}
	if in.Password != nil {
		hash, err := f.hash(*in.Password)
		if err != nil {
			return err
		}
		a.password = *in.Password
		a.hash = hash
	}
	f.updates = append(f.updates, in)
	return nil
}

func (f *fakeUsers) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authCalls++
	a := f.byEmail(email)
	if a == nil {
		return nil, common.ErrorUnauthorized
	}
	if a.hash != "" {
		if !f.hasher.Compare(a.hash, password) {
			return nil, common.ErrorUnauthorized
		}
	} else if a.password != password {
		return nil, common.ErrorUnauthorized
	}
	cp := a.user
	return &cp, nil
}

func (f *fakeUsers) Verify(ctx context.Context, token, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return common.ErrorValidation
	}
	for _, a := range f.accounts {
		if a.token != "" && a.token == token && (email == "" || a.user.Email == email) {
			a.user.Verified = true
			a.token = ""
			return nil
		}
	}
	if a := f.byEmail(email); a != nil && a.user.Verified {
		return common.ErrorAlreadyVerified
	}
	return common.ErrInvalidToken
}

// fakeImages is an in-memory ImageService.
type fakeImages struct {
	mu        sync.Mutex
	byUser    map[string]*models.Image
	max       int64
	deleteErr error
	uploaded  map[string]string
}

func newFakeImages(max int64) *fakeImages {
	return &fakeImages{byUser: map[string]*models.Image{}, max: max, uploaded: map[string]string{}}
}

func (f *fakeImages) MaxBytes() int64 { return f.max }

func (f *fakeImages) Upload(ctx context.Context, userID string, in services.UploadInput) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.Size > f.max {
		return nil, common.ErrorTooLarge
	}
	if _, ok := f.byUser[userID]; ok {
		return nil, common.ErrorAlreadyExists
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	img := &models.Image{
		ID: uuid.NewString(), UserID: userID, FileName: in.FileName, ContentType: in.ContentType,
		URL: "https://bucket.example/" + userID + "/" + in.FileName, Size: in.Size, UploadedAt: time.Now().UTC(),
	}
	f.byUser[userID] = img
	f.uploaded[userID] = string(b)
	return img, nil
}

func (f *fakeImages) Get(ctx context.Context, userID string) (*models.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.byUser[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return img, nil
}

func (f *fakeImages) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUser[userID]; !ok {
		return common.ErrorNotFound
	}
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.byUser, userID)
	return nil
}

type fakeHealth struct {
	mu  sync.Mutex
	err error
}

func (f *fakeHealth) Check(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeHealth) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if down {
		f.err = errors.New("database unreachable")
		return
	}
	f.err = nil
}

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *recordingMetrics) Count(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[name]++
}

func (r *recordingMetrics) Timing(string, time.Duration) {}

func (r *recordingMetrics) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}
