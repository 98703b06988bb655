package shop

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/openmerce/go-shop/social"
)

// FederatedSigninMessage carries a profile already verified against the
// identity provider.
type FederatedSigninMessage struct {
	Profile *social.Profile
}

func (e FederatedSigninMessage) Type() string { return "user.federated_signin" }

// FederatedSigninHandler resolves a provider profile to a local account,
// creating one on first sign-in. Provisioned accounts get a random,
// unusable password hash so password sign-in stays closed until the user
// sets one.
type FederatedSigninHandler struct {
	repo RepositoryManager
}

func NewFederatedSigninHandler(repo RepositoryManager) *FederatedSigninHandler {
	return &FederatedSigninHandler{repo: repo}
}

// Execute returns the account plus whether it was created on this call
func (h *FederatedSigninHandler) Execute(ctx context.Context, event FederatedSigninMessage) (*User, bool, error) {
	if event.Profile == nil || event.Profile.Email == "" {
		return nil, false, goerrors.New("federated profile is missing an email", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	var created bool

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.newFederatedUser(event.Profile)
		if err != nil {
			return err
		}

		user, created, err = h.repo.Users().GetOrCreateByEmailTx(ctx, tx, record)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not resolve federated account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, false, richErr
		}

		return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "federated sign-in transaction failed")
	}

	return user, created, nil
}

func (h *FederatedSigninHandler) newFederatedUser(profile *social.Profile) (*User, error) {
	record := &User{
		Email:        profile.Email,
		Username:     usernameFromEmail(profile.Email),
		Phone:        placeholderPhone(),
		FullName:     profile.Name,
		AvatarURL:    profile.AvatarURL,
		PasswordHash: RandomPasswordHash(),
		Role:         RoleUser,
		Active:       true,
	}

	// Deterministic id from the email keeps re-provisioning idempotent
	// across environments.
	if id, err := hashid.NewUUID(profile.Email); err == nil {
		record.ID = id
	}

	return record, nil
}

func usernameFromEmail(email string) string {
	local := email
	if i := strings.Index(email, "@"); i > 0 {
		local = email[:i]
	}

	// Suffix avoids colliding with an unrelated account that already
	// claimed the local part as its username.
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s_%s", local, suffix)
}

// placeholderPhone fills the NOT NULL unique phone column for accounts
// provisioned without one. Values are outside any dialable plan.
func placeholderPhone() string {
	return "ext-" + uuid.NewString()
}
