package service

import (
	"context"
	"fmt"
	"time"

	"github.com/and161185/fastcite/internal/api"
	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/model"
)

// MinPasswordLen is the shortest accepted new password.
const MinPasswordLen = 8

// ProfileEdit is the edit form. Nil fields were not touched.
type ProfileEdit struct {
	Username *string
	Name     *string
	DOB      *string
}

// ProfileService defines profile viewing and editing.
type ProfileService interface {
	Get(ctx context.Context) (model.Profile, error)
	// Update sends only the fields that differ from current. It reports
	// false without a request when nothing changed.
	Update(ctx context.Context, current model.Profile, edit ProfileEdit) (model.Profile, bool, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error
}

type ProfileServiceImpl struct {
	api UserAPI
}

// NewProfileService constructs ProfileService.
func NewProfileService(a UserAPI) *ProfileServiceImpl {
	return &ProfileServiceImpl{api: a}
}

func (s *ProfileServiceImpl) Get(ctx context.Context) (model.Profile, error) {
	return s.api.Profile(ctx)
}

// Diff returns the update carrying only changed fields.
func Diff(current model.Profile, edit ProfileEdit) api.ProfileUpdate {
	var u api.ProfileUpdate
	if edit.Username != nil && *edit.Username != current.Username {
		u.Username = edit.Username
	}
	if edit.Name != nil && *edit.Name != current.Name {
		u.Name = edit.Name
	}
	if edit.DOB != nil && *edit.DOB != current.DOB {
		u.DOB = edit.DOB
	}
	return u
}

func (s *ProfileServiceImpl) Update(ctx context.Context, current model.Profile, edit ProfileEdit) (model.Profile, bool, error) {
	upd := Diff(current, edit)
	if upd.Empty() {
		return current, false, nil
	}
	if upd.Username != nil && *upd.Username == "" {
		return current, false, fmt.Errorf("%w: username cannot be empty", errs.ErrValidation)
	}
	if upd.DOB != nil && *upd.DOB != "" {
		if _, err := time.Parse(time.DateOnly, *upd.DOB); err != nil {
			return current, false, fmt.Errorf("%w: date of birth must be YYYY-MM-DD", errs.ErrValidation)
		}
	}
	res, err := s.api.UpdateProfile(ctx, current.ID, upd)
	if err != nil {
		return current, false, err
	}
	return res.User, true, nil
}

func (s *ProfileServiceImpl) ChangePassword(ctx context.Context, oldPassword, newPassword, confirm string) error {
	switch {
	case oldPassword == "" || newPassword == "" || confirm == "":
		return fmt.Errorf("%w: all password fields are required", errs.ErrValidation)
	case newPassword != confirm:
		return fmt.Errorf("%w: new passwords do not match", errs.ErrValidation)
	case len([]rune(newPassword)) < MinPasswordLen:
		return fmt.Errorf("%w: new password must be at least %d characters long", errs.ErrValidation, MinPasswordLen)
	}
	return s.api.ChangePassword(ctx, oldPassword, newPassword)
}
