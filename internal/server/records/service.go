package records

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/botkeeper/botkeeper/internal/logging"
	"github.com/botkeeper/botkeeper/internal/server/auth"
	"github.com/botkeeper/botkeeper/internal/server/config"
	"github.com/botkeeper/botkeeper/internal/server/events"
)

// Same mailbox pattern the legacy system validated against.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minUsernameLen = 3
	minPasswordLen = 5
)

// RegisterInput captures the registration payload. State is optional and
// defaults to an empty mapping.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	State           *State
}

// UpdateInput carries the full-update payload. Each field may be supplied
// independently; nil fields keep the stored value.
type UpdateInput struct {
	Username *string
	Password *string
	State    *State
}

// Service implements every operation over the user-record collection.
//
// The backing store only offers whole-collection Load/Save, so every write
// is a load-mutate-save cycle. Those cycles are serialized by mu; without
// it two overlapping writes would silently lose one side's update.
type Service struct {
	store         Store
	events        events.Publisher
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration

	mu    sync.Mutex
	newID func() string
}

func NewService(store Store, publisher events.Publisher, logger logging.Logger, cfg *config.Config) *Service {
	return &Service{
		store:         store,
		events:        publisher,
		logger:        logger,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.AccessTokenValidityDuration,
		newID:         func() string { return uuid.NewString() },
	}
}

// Register validates the input in order (first failing check wins), appends
// a new record and persists the collection. The initial state defaults to
// an empty mapping.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if len(input.Username) < minUsernameLen {
		return nil, ErrUsernameTooShort
	}
	if !emailPattern.MatchString(input.Email) {
		return nil, ErrInvalidEmail
	}
	if len(input.Password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}
	if input.Password != input.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	state := State{}
	if input.State != nil {
		state = input.State.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	if indexByEmail(users, input.Email) != -1 {
		return nil, ErrUserExists
	}

	user := User{
		ID:           s.newID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		State:        state,
	}

	users = append(users, user)
	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.TypeUserRegistered,
		Email:   user.Email,
		Payload: map[string]string{"username": user.Username},
	})

	return &user, nil
}

// Login verifies the credentials and returns the matched record together
// with a signed access token. Unknown email and wrong password produce the
// same error so callers cannot probe which part was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	if !emailPattern.MatchString(email) {
		return nil, "", ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, "", ErrPasswordTooShort
	}

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, "", err
	}

	i := indexByEmail(users, email)
	if i == -1 {
		return nil, "", ErrInvalidCredentials
	}

	user := users[i]
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, "", fmt.Errorf("signing token: %w", err)
	}

	return &user, token, nil
}

// List returns the entire collection in registration order.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.store.Load(ctx)
}

// GetByEmail returns the record whose email matches.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexByEmail(users, email)
	if i == -1 {
		return nil, ErrUserNotFound
	}
	return &users[i], nil
}

// Update overlays any subset of {username, password, state} onto the stored
// record. Supplied credential fields are validated like at registration.
func (s *Service) Update(ctx context.Context, email string, input UpdateInput) (*User, error) {
	if input.Username != nil && len(*input.Username) < minUsernameLen {
		return nil, ErrUsernameTooShort
	}

	var hash []byte
	if input.Password != nil {
		if len(*input.Password) < minPasswordLen {
			return nil, ErrPasswordTooShort
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	i := indexByEmail(users, email)
	if i == -1 {
		return nil, ErrUserNotFound
	}

	if input.Username != nil {
		users[i].Username = *input.Username
	}
	if input.Password != nil {
		users[i].PasswordHash = string(hash)
	}
	if input.State != nil {
		users[i].State = input.State.Clone()
	}

	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	return &users[i], nil
}

// ReplaceState replaces the record's state wholesale; there is no merge.
func (s *Service) ReplaceState(ctx context.Context, email string, state State) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	i := indexByEmail(users, email)
	if i == -1 {
		return nil, ErrUserNotFound
	}

	users[i].State = state.Clone()

	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	return &users[i].State, nil
}

// AddActiveBot appends a bot to the record's active sequence, initializing
// the sequence if it is absent.
func (s *Service) AddActiveBot(ctx context.Context, email string, bot Bot) (Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	i := indexByEmail(users, email)
	if i == -1 {
		return nil, ErrUserNotFound
	}

	if users[i].State.Active == nil {
		users[i].State.Active = []Bot{}
	}
	users[i].State.Active = append(users[i].State.Active, bot.clone())

	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	return bot, nil
}

// MoveBot transfers the bot with the given id from the active to the
// completed sequence. The move is a transfer, not a copy: the remaining
// active order is preserved and the bot lands at the end of completed.
// Ids are matched loosely, so "1" finds a bot stored with a numeric id 1.
func (s *Service) MoveBot(ctx context.Context, email, botID string) (Bot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	i := indexByEmail(users, email)
	if i == -1 {
		return nil, ErrUserNotFound
	}

	active := users[i].State.Active
	pos := -1
	for j, b := range active {
		if b.ID() == botID {
			pos = j
			break
		}
	}
	if pos == -1 {
		return nil, ErrActiveBotNotFound
	}

	moved := active[pos]
	users[i].State.Active = append(active[:pos:pos], active[pos+1:]...)
	if users[i].State.Completed == nil {
		users[i].State.Completed = []Bot{}
	}
	users[i].State.Completed = append(users[i].State.Completed, moved)

	if err := s.store.Save(ctx, users); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:    events.TypeBotMoved,
		Email:   email,
		Payload: map[string]string{"botId": botID},
	})

	return moved, nil
}

// Delete removes the record matched by email from the collection.
func (s *Service) Delete(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	i := indexByEmail(users, email)
	if i == -1 {
		return ErrUserNotFound
	}

	users = append(users[:i:i], users[i+1:]...)

	if err := s.store.Save(ctx, users); err != nil {
		return err
	}

	s.publish(ctx, events.Event{Type: events.TypeUserDeleted, Email: email})

	return nil
}

// publish emits a record-change event. Event delivery is best-effort and
// never fails the request.
func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Warn(ctx, "failed to publish event", "type", e.Type, "email", e.Email, "error", err)
	}
}

func indexByEmail(users []User, email string) int {
	for i, u := range users {
		if u.Email == email {
			return i
		}
	}
	return -1
}
