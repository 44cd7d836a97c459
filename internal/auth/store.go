package auth

import (
	"context"

	"accmgr-telebot/internal/model"
	"accmgr-telebot/internal/repo"
)

// repoStore adapts the phone and session repositories to the Store slice
// the registry needs.
type repoStore struct {
	phones   repo.PhoneRepo
	sessions repo.SessionRepo
}

// NewRepoStore builds a Store over the persistence repositories.
func NewRepoStore(phones repo.PhoneRepo, sessions repo.SessionRepo) Store {
	return &repoStore{phones: phones, sessions: sessions}
}

func (s *repoStore) UpdatePhoneStatus(ctx context.Context, recordID int64, status model.PhoneStatus, authenticated bool) error {
	return s.phones.UpdateStatus(ctx, recordID, status, authenticated)
}

func (s *repoStore) UpsertSession(ctx context.Context, userID int64, phone, sessionRef string) error {
	return s.sessions.Upsert(ctx, userID, phone, sessionRef)
}
