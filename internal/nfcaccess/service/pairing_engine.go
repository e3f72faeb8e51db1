package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nfcaccess/server/internal/nfcaccess/store"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

const (
	DefaultPairingTTL = 60 * time.Second

	maxTokenAttempts = 5
)

type PairingConfig struct {
	// TTL is how long a session stays resolvable.  Zero means DefaultPairingTTL.
	TTL time.Duration

	// Exclusive rejects Start while another user's session is pending.
	// When false, concurrent sessions are allowed and Sync resolves to the
	// most recently started one.
	Exclusive bool
}

// TokenGenerator produces pairing tokens.  Collisions are retried.
type TokenGenerator func() (string, error)

// PairingEngine resolves an anonymous reader scan to a user through a
// short-lived pairing session started by a client that knows the user.
//
// A session is PENDING until Sync binds it or its TTL passes.  Expiry is
// derived from the clock on every read; nothing sweeps sessions.
type PairingEngine struct {
	store    store.Store
	audit    *AuditLog
	cfg      PairingConfig
	now      Clock
	newToken TokenGenerator
}

func NewPairingEngine(st store.Store, audit *AuditLog, cfg PairingConfig, clock Clock) *PairingEngine {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultPairingTTL
	}
	return &PairingEngine{
		store:    st,
		audit:    audit,
		cfg:      cfg,
		now:      orSystem(clock),
		newToken: NewPairToken,
	}
}

// WithTokenGenerator swaps the token source.  Used by tests.
func (e *PairingEngine) WithTokenGenerator(gen TokenGenerator) *PairingEngine {
	e.newToken = gen
	return e
}

// NewPairToken returns 64 random bits as four upper-case hex groups,
// e.g. "9F3A-01BC-77D2-E450".
func NewPairToken() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("pair token: %w", err)
	}
	raw := strings.ToUpper(hex.EncodeToString(b[:]))
	return raw[0:4] + "-" + raw[4:8] + "-" + raw[8:12] + "-" + raw[12:16], nil
}

// Start opens a PENDING session for the user identified by national id.
func (e *PairingEngine) Start(ctx context.Context, rawNationalID string) (types.PairStartResponse, error) {
	nationalID, err := NormalizeNationalID(rawNationalID)
	if err != nil {
		return types.PairStartResponse{}, err
	}

	now := e.now()
	var sess types.PairingSession
	err = e.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		u, err := userByNationalID(ctx, tx, nationalID)
		if err != nil {
			return err
		}
		if u.HasCard() {
			return &CardBoundError{UUID: u.Card()}
		}

		if e.cfg.Exclusive {
			active, err := tx.LatestActivePairingSession(ctx, now)
			switch {
			case err == nil && active.UserID != u.ID:
				return ErrPairingInProgress
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		sess, err = e.insertSession(ctx, tx, u.ID, now)
		return err
	})
	if err != nil {
		return types.PairStartResponse{}, err
	}

	return types.PairStartResponse{
		PairToken: sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Vinculado: sess.Bound,
		UserID:    sess.UserID,
	}, nil
}

func (e *PairingEngine) insertSession(ctx context.Context, tx store.PairingTx, userID int64, now time.Time) (types.PairingSession, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := e.newToken()
		if err != nil {
			return types.PairingSession{}, err
		}
		sess, err := tx.InsertPairingSession(ctx, types.PairingSession{
			Token:     token,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(e.cfg.TTL),
		})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return types.PairingSession{}, fmt.Errorf("insert pairing session: %w", err)
		}
		return sess, nil
	}
	return types.PairingSession{}, ErrTokenExhausted
}

// Sync binds cardUUID to the user of the most recently started active
// session.  The reader never says which user it means; the newest pending
// session wins.
//
// With no active session a SYNC_NO_SESSION entry is committed and
// ErrNoActiveSession returned.  Every other failure leaves the store
// untouched and the session still PENDING.
func (e *PairingEngine) Sync(ctx context.Context, rawCardUUID string) (types.SyncResponse, error) {
	cardUUID, err := normalizeCardUUID(rawCardUUID)
	if err != nil {
		return types.SyncResponse{}, err
	}

	now := e.now()
	var (
		resp      types.SyncResponse
		noSession bool
	)
	err = e.store.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		sess, err := tx.LatestActivePairingSession(ctx, now)
		if errors.Is(err, store.ErrNotFound) {
			entry, err := e.audit.Append(ctx, tx, nil, cardUUID, types.ActionSyncNoSession)
			if err != nil {
				return err
			}
			noSession = true
			resp = types.SyncResponse{Linked: false, Message: ErrNoActiveSession.Error(), LogID: entry.ID}
			return nil
		}
		if err != nil {
			return err
		}

		u, err := tx.UserByID(ctx, sess.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: session %s, user %d", ErrInconsistentState, sess.Token, sess.UserID)
		}
		if err != nil {
			return err
		}

		if _, err := tx.UserByCardUUID(ctx, cardUUID); err == nil {
			return ErrCardAlreadyBound
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if u.HasCard() {
			return &CardBoundError{UUID: u.Card()}
		}

		u.CardUUID = &cardUUID
		u.UpdatedAt = now
		if err := tx.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("bind card: %w", err)
		}
		if err := tx.MarkPairingSessionBound(ctx, sess.ID); err != nil {
			return fmt.Errorf("consume session: %w", err)
		}
		entry, err := e.audit.Append(ctx, tx, &u, cardUUID, types.ActionLink)
		if err != nil {
			return err
		}

		resp = types.SyncResponse{Linked: true, User: &u, PairToken: sess.Token, LogID: entry.ID}
		return nil
	})
	if err != nil {
		return types.SyncResponse{}, err
	}
	if noSession {
		return resp, ErrNoActiveSession
	}
	return resp, nil
}

// Status is a pure read.  expired is computed against the clock on every
// call.
func (e *PairingEngine) Status(ctx context.Context, token string) (types.PairStatus, error) {
	token = strings.TrimSpace(token)
	now := e.now()

	var st types.PairStatus
	err := e.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		sess, err := tx.PairingSessionByToken(ctx, token)
		if errors.Is(err, store.ErrNotFound) {
			return ErrPairTokenNotFound
		}
		if err != nil {
			return err
		}

		st = types.PairStatus{
			PairToken: sess.Token,
			Vinculado: sess.Bound,
			Expired:   sess.Expired(now),
			State:     sess.State(now),
			ExpiresAt: sess.ExpiresAt,
		}

		u, err := tx.UserByID(ctx, sess.UserID)
		switch {
		case err == nil:
			st.User = &u
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		return nil
	})
	return st, err
}

// Sessions lists every stored session, newest first.
func (e *PairingEngine) Sessions(ctx context.Context) ([]types.PairingSession, error) {
	sessions := []types.PairingSession{}
	err := e.store.View(ctx, func(ctx context.Context, tx store.Tx) error {
		all, err := tx.ListPairingSessions(ctx)
		if err != nil {
			return err
		}
		sessions = append(sessions, all...)
		return nil
	})
	return sessions, err
}
