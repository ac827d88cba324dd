package repofakes

import (
	"context"
	"sync"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
	"github.com/shoplane/embedded-app-server/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is an in-memory sessions.Repo for tests. DeleteErrFor
// injects a failure for specific ids to exercise partial-failure paths.
type FakeSessionRepo struct {
	store        map[string]*sessions.Session
	lock         sync.RWMutex
	DeleteErrFor map[string]error
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		store:        make(map[string]*sessions.Session),
		DeleteErrFor: make(map[string]error),
	}
}

func (sr *FakeSessionRepo) StoreSession(_ context.Context, session *sessions.Session) error {
	if session == nil || session.ID == "" {
		return apperrors.ErrMalformedSessionID
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()
	copied := *session
	sr.store[session.ID] = &copied
	return nil
}

func (sr *FakeSessionRepo) LoadSession(_ context.Context, id string) (*sessions.Session, error) {
	if _, err := sessions.ShopFromSessionID(id); err != nil {
		return nil, err
	}
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	session, ok := sr.store[id]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (sr *FakeSessionRepo) DeleteSession(_ context.Context, id string) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	if err, ok := sr.DeleteErrFor[id]; ok {
		return err
	}
	delete(sr.store, id)
	return nil
}

func (sr *FakeSessionRepo) DeleteSessions(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := sr.DeleteSession(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (sr *FakeSessionRepo) FindSessionsByShop(_ context.Context, shop string) ([]*sessions.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	out := make([]*sessions.Session, 0)
	for _, session := range sr.store {
		if session.Shop == shop {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Has reports whether a session id is currently stored.
func (sr *FakeSessionRepo) Has(id string) bool {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	_, ok := sr.store[id]
	return ok
}
