package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

// CardChange is the outcome of a successful link or unlink.
type CardChange struct {
	User types.User
	Log  types.LogEntry
}

// AccessDecision is the outcome of Validate.  User is nil when denied.
type AccessDecision struct {
	Authorized bool
	User       *types.User
	Log        types.LogEntry
}

// AccessGateway serves the synchronous card operations: manual link,
// unlink, and the per-scan access check.
type AccessGateway struct {
	store store.Store
	audit *AuditLog
	now   Clock
}

func NewAccessGateway(st store.Store, audit *AuditLog, clock Clock) *AccessGateway {
	return &AccessGateway{store: st, audit: audit, now: orSystem(clock)}
}

func (g *AccessGateway) LinkDirect(ctx context.Context, rawNationalID, rawCardUUID string) (CardChange, error) {
	nationalID, err := NormalizeNationalID(rawNationalID)
	if err != nil {
		return CardChange{}, err
	}
	cardUUID, err := normalizeCardUUID(rawCardUUID)
	if err != nil {
		return CardChange{}, err
	}

	now := g.now()
	var out CardChange
	err = g.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := userByNationalID(ctx, tx, nationalID)
		if err != nil {
			return err
		}
		if u.HasCard() {
			return &CardBoundError{UUID: u.Card()}
		}
		if _, err := tx.UserByCardUUID(ctx, cardUUID); err == nil {
			return ErrCardAlreadyBound
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		u.CardUUID = &cardUUID
		u.UpdatedAt = now
		if err := tx.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("link card: %w", err)
		}
		entry, err := g.audit.Append(ctx, tx, &u, cardUUID, types.ActionLink)
		if err != nil {
			return err
		}
		out = CardChange{User: u, Log: entry}
		return nil
	})
	return out, err
}

func (g *AccessGateway) Unlink(ctx context.Context, rawNationalID string) (CardChange, error) {
	nationalID, err := NormalizeNationalID(rawNationalID)
	if err != nil {
		return CardChange{}, err
	}

	now := g.now()
	var out CardChange
	err = g.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := userByNationalID(ctx, tx, nationalID)
		if err != nil {
			return err
		}
		if !u.HasCard() {
			return ErrNoCardBound
		}

		cardUUID := u.Card()
		u.CardUUID = nil
		u.UpdatedAt = now
		if err := tx.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("unlink card: %w", err)
		}
		entry, err := g.audit.Append(ctx, tx, &u, cardUUID, types.ActionUnlink)
		if err != nil {
			return err
		}
		out = CardChange{User: u, Log: entry}
		return nil
	})
	return out, err
}

// Validate decides a physical access attempt.  Granted or denied, exactly
// one log entry is written; if it cannot be written the call fails.
func (g *AccessGateway) Validate(ctx context.Context, rawCardUUID string) (AccessDecision, error) {
	cardUUID, err := normalizeCardUUID(rawCardUUID)
	if err != nil {
		return AccessDecision{}, err
	}

	var out AccessDecision
	err = g.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := tx.UserByCardUUID(ctx, cardUUID)
		switch {
		case err == nil:
			entry, err := g.audit.Append(ctx, tx, &u, cardUUID, types.ActionAccessGranted)
			if err != nil {
				return err
			}
			out = AccessDecision{Authorized: true, User: &u, Log: entry}
			return nil
		case errors.Is(err, store.ErrNotFound):
			entry, err := g.audit.Append(ctx, tx, nil, cardUUID, types.ActionAccessDenied)
			if err != nil {
				return err
			}
			out = AccessDecision{Authorized: false, Log: entry}
			return nil
		default:
			return err
		}
	})
	return out, err
}

// Cards lists every bound card with its holder and every pairing session.
func (g *AccessGateway) Cards(ctx context.Context) (types.CardOverview, error) {
	out := types.CardOverview{
		Cards:           []types.CardBinding{},
		PairingSessions: []types.PairingSession{},
	}
	err := g.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		users, err := tx.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			if u.HasCard() {
				out.Cards = append(out.Cards, types.CardBinding{CardUUID: u.Card(), User: u})
			}
		}

		sessions, err := tx.ListPairingSessions(ctx)
		if err != nil {
			return err
		}
		out.PairingSessions = append(out.PairingSessions, sessions...)
		return nil
	})
	return out, err
}
