package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// Directory owns user records and their optional card binding.
type Directory struct {
	store store.Store
	now   Clock
}

func NewDirectory(st store.Store, clock Clock) *Directory {
	return &Directory{store: st, now: orSystem(clock)}
}

func (d *Directory) Create(ctx context.Context, req types.CreateUserRequest) (types.User, error) {
	name, err := required("name", req.Name)
	if err != nil {
		return types.User{}, err
	}
	if _, err := required("cpf", req.NationalID); err != nil {
		return types.User{}, err
	}
	if _, err := required("email", req.Email); err != nil {
		return types.User{}, err
	}
	phone, err := required("phone", req.Phone)
	if err != nil {
		return types.User{}, err
	}
	nationalID, err := NormalizeNationalID(req.NationalID)
	if err != nil {
		return types.User{}, err
	}
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return types.User{}, err
	}

	now := d.now()
	var created types.User
	err = d.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := ensureFree(ctx, tx, 0, nationalID, email); err != nil {
			return err
		}
		u, err := tx.InsertUser(ctx, types.User{
			Name:       name,
			NationalID: nationalID,
			Email:      email,
			Phone:      phone,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		created = u
		return nil
	})
	return created, err
}

func (d *Directory) List(ctx context.Context) ([]types.User, error) {
	users := []types.User{}
	err := d.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := tx.ListUsers(ctx)
		if err != nil {
			return err
		}
		users = append(users, all...)
		return nil
	})
	return users, err
}

func (d *Directory) FindByNationalID(ctx context.Context, raw string) (types.User, error) {
	nationalID, err := NormalizeNationalID(raw)
	if err != nil {
		return types.User{}, err
	}
	var u types.User
	err = d.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err = userByNationalID(ctx, tx, nationalID)
		return err
	})
	return u, err
}

func (d *Directory) FindByUUID(ctx context.Context, cardUUID string) (types.User, error) {
	cardUUID, err := normalizeCardUUID(cardUUID)
	if err != nil {
		return types.User{}, err
	}
	var u types.User
	err = d.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err = tx.UserByCardUUID(ctx, cardUUID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	})
	return u, err
}

// Update applies patch to the user with the given id.
func (d *Directory) Update(ctx context.Context, id int64, patch types.UserPatch) (types.User, error) {
	return d.update(ctx, patch, func(ctx context.Context, tx store.Tx) (types.User, error) {
		u, err := tx.UserByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return u, err
	})
}

func (d *Directory) UpdateByNationalID(ctx context.Context, raw string, patch types.UserPatch) (types.User, error) {
	nationalID, err := NormalizeNationalID(raw)
	if err != nil {
		return types.User{}, err
	}
	return d.update(ctx, patch, func(ctx context.Context, tx store.Tx) (types.User, error) {
		return userByNationalID(ctx, tx, nationalID)
	})
}

func (d *Directory) Delete(ctx context.Context, id int64) error {
	return d.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		err := tx.DeleteUser(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	})
}

func (d *Directory) DeleteByNationalID(ctx context.Context, raw string) error {
	nationalID, err := NormalizeNationalID(raw)
	if err != nil {
		return err
	}
	return d.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := userByNationalID(ctx, tx, nationalID)
		if err != nil {
			return err
		}
		return tx.DeleteUser(ctx, u.ID)
	})
}

type userLoader func(ctx context.Context, tx store.Tx) (types.User, error)

func (d *Directory) update(ctx context.Context, patch types.UserPatch, load userLoader) (types.User, error) {
	next, err := normalizePatch(patch)
	if err != nil {
		return types.User{}, err
	}

	now := d.now()
	var updated types.User
	err = d.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := load(ctx, tx)
		if err != nil {
			return err
		}

		if next.Name != nil {
			u.Name = *next.Name
		}
		if next.Phone != nil {
			u.Phone = *next.Phone
		}
		if next.NationalID != nil {
			u.NationalID = *next.NationalID
		}
		if next.Email != nil {
			u.Email = *next.Email
		}
		if err := ensureFree(ctx, tx, u.ID, u.NationalID, u.Email); err != nil {
			return err
		}

		if next.CardUUID.Set {
			if next.CardUUID.Value == nil {
				u.CardUUID = nil
			} else {
				card := *next.CardUUID.Value
				holder, err := tx.UserByCardUUID(ctx, card)
				switch {
				case err == nil && holder.ID != u.ID:
					return ErrDuplicateCardUUID
				case err != nil && !errors.Is(err, store.ErrNotFound):
					return err
				}
				u.CardUUID = &card
			}
		}

		u.UpdatedAt = now
		if err := tx.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		updated = u
		return nil
	})
	return updated, err
}

// normalizePatch validates every present field before any store access.
// An empty nfc_card_uuid is treated as an explicit clear.
func normalizePatch(p types.UserPatch) (types.UserPatch, error) {
	out := types.UserPatch{CardUUID: p.CardUUID}

	if p.Name != nil {
		name, err := required("name", *p.Name)
		if err != nil {
			return out, err
		}
		out.Name = &name
	}
	if p.Phone != nil {
		phone, err := required("phone", *p.Phone)
		if err != nil {
			return out, err
		}
		out.Phone = &phone
	}
	if p.NationalID != nil {
		nationalID, err := NormalizeNationalID(*p.NationalID)
		if err != nil {
			return out, err
		}
		out.NationalID = &nationalID
	}
	if p.Email != nil {
		email, err := NormalizeEmail(*p.Email)
		if err != nil {
			return out, err
		}
		out.Email = &email
	}
	if p.CardUUID.Set && p.CardUUID.Value != nil {
		card := strings.TrimSpace(*p.CardUUID.Value)
		if card == "" {
			out.CardUUID.Value = nil
		} else {
			out.CardUUID.Value = &card
		}
	}
	return out, nil
}

// ensureFree rejects a cpf or email already held by a user other than selfID.
func ensureFree(ctx context.Context, tx store.UserTx, selfID int64, nationalID, email string) error {
	other, err := tx.UserByNationalID(ctx, nationalID)
	switch {
	case err == nil && other.ID != selfID:
		return ErrDuplicateNationalID
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	other, err = tx.UserByEmail(ctx, email)
	switch {
	case err == nil && other.ID != selfID:
		return ErrDuplicateEmail
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}
	return nil
}

func userByNationalID(ctx context.Context, tx store.UserTx, nationalID string) (types.User, error) {
	u, err := tx.UserByNationalID(ctx, nationalID)
	if errors.Is(err, store.ErrNotFound) {
		return types.User{}, ErrUserNotFound
	}
	return u, err
}
