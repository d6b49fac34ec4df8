package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	UseHashid   bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserHandler creates a new active user inside a transaction,
// rejecting duplicate usernames and emails before anything is written.
type RegisterUserHandler struct {
	repo        RepositoryManager
	featureGate gate.FeatureGate
	logger      Logger
	provider    LoggerProvider
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	loggerProvider, logger := ResolveLogger("auth.register", nil, nil)
	return &RegisterUserHandler{
		repo:     repo,
		logger:   logger,
		provider: loggerProvider,
	}
}

// WithFeatureGate lets deployments turn signup off without unwiring routes.
func (h *RegisterUserHandler) WithFeatureGate(featureGate gate.FeatureGate) *RegisterUserHandler {
	h.featureGate = featureGate
	return h
}

func (h *RegisterUserHandler) WithLogger(l Logger) *RegisterUserHandler {
	h.provider, h.logger = ResolveLogger("auth.register", h.provider, l)
	return h
}

var _ AccountRegistrerer = (*RegisterUserHandler)(nil)

// RegisterUser satisfies AccountRegistrerer
func (h *RegisterUserHandler) RegisterUser(ctx context.Context, msg RegisterUserMessage) (*User, error) {
	user, err := h.execute(ctx, msg)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		_, err := h.execute(ctx, event)
		return err
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if h.featureGate != nil {
		if err := requireFeatureGate(ctx, h.featureGate, gate.FeatureUsersSignup, ErrSignupDisabled); err != nil {
			return nil, err
		}
	}

	if h.repo == nil {
		return nil, goerrors.New("register handler requires a repository manager", goerrors.CategoryInternal)
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		username := getUsername(event.Username, event.Email)

		// Duplicate checks run inside the transaction so a racing signup
		// still hits the unique constraints rather than a stale answer.
		if taken, err := h.repo.Users().ExistsByUsernameTx(ctx, tx, username); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
		} else if taken {
			return ErrDuplicateUsername
		}

		if taken, err := h.repo.Users().ExistsByEmailTx(ctx, tx, event.Email); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		} else if taken {
			return ErrDuplicateEmail
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Username = username
		user.DisplayName = event.DisplayName
		user.Role = UserRole(event.Role)
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	return user, nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
