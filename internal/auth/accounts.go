package auth

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/sprout/internal/errors"
	"github.com/julianstephens/sprout/internal/logger"
	"github.com/julianstephens/sprout/internal/models"
	"github.com/julianstephens/sprout/internal/storage"
	"github.com/julianstephens/sprout/internal/validation"
)

// Accounts creates users and checks their passwords against the store
type Accounts struct {
	store     storage.Provider
	validator *validation.Validator
	cost      int
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAccounts returns an Accounts hashing with the given bcrypt cost. Costs
// outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewAccounts(store storage.Provider, cost int) *Accounts {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Accounts{
		store:     store,
		validator: validation.New(),
		cost:      cost,
		now:       time.Now,
	}
}

// CreateAccount validates the credentials, hashes the password and stores
// the user together with an empty journal.
func (a *Accounts) CreateAccount(username, password string) (models.User, error) {
	username, err := a.validator.ValidateCredentials(username, password)
	if err != nil {
		return models.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.CreateUser(user); err != nil {
		return models.User{}, err
	}

	logger.Info("Account created", "username", username)
	return user, nil
}

// VerifyCredentials returns the user when the password matches. Unknown
// users and wrong passwords fail with the same error and about the same
// latency.
func (a *Accounts) VerifyCredentials(username, password string) (models.User, error) {
	username = strings.TrimSpace(username)

	user, err := a.store.GetUser(username)
	if stderrors.Is(err, storage.ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.dummy(), []byte(password))
		logger.Info("Login failed", "username", username)
		return models.User{}, errors.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Info("Login failed", "username", username)
		return models.User{}, errors.ErrInvalidCredentials
	}
	return user, nil
}

func (a *Accounts) dummy() []byte {
	a.dummyOnce.Do(func() {
		// Only fails for passwords over 72 bytes
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("sprout-timing-equalizer"), a.cost)
	})
	return a.dummyHash
}
