package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fastygo/greenbite/domain"
	"github.com/fastygo/greenbite/repository"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewStore()
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) TestSetGetList() {
	s.Require().NoError(s.store.Set(s.ctx, "ngos/n1", domain.NgoProfile{ID: "n1", Name: "Food Bank"}))
	s.Require().NoError(s.store.Set(s.ctx, "ngos/n2", domain.NgoProfile{ID: "n2", Name: "Shelter"}))
	s.Require().NoError(s.store.Set(s.ctx, "ngos/n1/donations/d1", domain.Donation{ID: "d1"}))

	doc, err := s.store.Get(s.ctx, "ngos/n1")
	s.Require().NoError(err)
	var ngo domain.NgoProfile
	s.Require().NoError(doc.Decode(&ngo))
	s.Equal("Food Bank", ngo.Name)
	s.Equal("n1", doc.ID())

	docs, err := s.store.List(s.ctx, "ngos")
	s.Require().NoError(err)
	s.Len(docs, 2, "sub-collection documents are not listed with their parent")

	_, err = s.store.Get(s.ctx, "ngos/missing")
	s.ErrorIs(err, domain.ErrDocumentNotFound)
}

func (s *StoreSuite) TestSetRejectsCollectionPaths() {
	err := s.store.Set(s.ctx, "ngos", map[string]string{"a": "b"})
	s.True(domain.IsDomainError(err, domain.ErrCodeInvalid))
}

func (s *StoreSuite) TestPatchMergesFields() {
	s.Require().NoError(s.store.Set(s.ctx, "users/u1", domain.UserProfile{ID: "u1", Name: "Ana", Role: domain.RoleUser}))
	s.Require().NoError(s.store.Patch(s.ctx, "users/u1", map[string]interface{}{"address": "Main St"}))

	doc, err := s.store.Get(s.ctx, "users/u1")
	s.Require().NoError(err)
	var user domain.UserProfile
	s.Require().NoError(doc.Decode(&user))
	s.Equal("Ana", user.Name)
	s.Equal("Main St", user.Address)
	s.Equal(domain.RoleUser, user.Role)

	s.ErrorIs(s.store.Patch(s.ctx, "users/u2", map[string]interface{}{"x": 1}), domain.ErrDocumentNotFound)
}

func (s *StoreSuite) TestDeleteDoesNotCascade() {
	s.Require().NoError(s.store.Set(s.ctx, "ngos/n1", domain.NgoProfile{ID: "n1"}))
	s.Require().NoError(s.store.Set(s.ctx, "ngos/n1/donations/d1", domain.Donation{ID: "d1"}))

	s.Require().NoError(s.store.Delete(s.ctx, "ngos/n1"))
	_, err := s.store.Get(s.ctx, "ngos/n1/donations/d1")
	s.NoError(err)
	s.ErrorIs(s.store.Delete(s.ctx, "ngos/n1"), domain.ErrDocumentNotFound)
}

func (s *StoreSuite) TestRunTxIsAllOrNothing() {
	s.Require().NoError(s.store.Set(s.ctx, "pendingNgos/n1", domain.NgoProfile{ID: "n1"}))

	boom := errors.New("boom")
	err := s.store.RunTx(s.ctx, func(tx repository.Tx) error {
		s.Require().NoError(tx.Set(s.ctx, "ngos/n1", domain.NgoProfile{ID: "n1", Approved: true}))
		s.Require().NoError(tx.Delete(s.ctx, "pendingNgos/n1"))
		s.Require().NoError(tx.Enqueue(s.ctx, &domain.OutboxMessage{Kind: domain.OutboxApprovalEmail}))

		_, err := tx.Get(s.ctx, "pendingNgos/n1")
		s.ErrorIs(err, domain.ErrDocumentNotFound, "reads see staged deletes")
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.Get(s.ctx, "pendingNgos/n1")
	s.NoError(err)
	_, err = s.store.Get(s.ctx, "ngos/n1")
	s.ErrorIs(err, domain.ErrDocumentNotFound)
	count, err := s.store.PendingCount(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *StoreSuite) TestOutboxClaimLeasesMessages() {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Enqueue(s.ctx, &domain.OutboxMessage{ID: "m1", Kind: "k", NextAttemptAt: now}))
	s.Require().NoError(s.store.Enqueue(s.ctx, &domain.OutboxMessage{ID: "m2", Kind: "k", NextAttemptAt: now.Add(time.Hour)}))

	claimed, err := s.store.Claim(s.ctx, now, time.Minute, 10)
	s.Require().NoError(err)
	s.Require().Len(claimed, 1)
	s.Equal("m1", claimed[0].ID)

	again, err := s.store.Claim(s.ctx, now, time.Minute, 10)
	s.Require().NoError(err)
	s.Empty(again, "leased message is not handed out twice")

	s.Require().NoError(s.store.MarkDelivered(s.ctx, "m1", now))
	msg, err := s.store.Message(s.ctx, "m1")
	s.Require().NoError(err)
	s.Equal(domain.OutboxDelivered, msg.State)
	s.Equal(1, msg.Attempts)

	s.Require().NoError(s.store.MarkFailed(s.ctx, "m2", "relay down", now, true))
	msg, err = s.store.Message(s.ctx, "m2")
	s.Require().NoError(err)
	s.Equal(domain.OutboxDead, msg.State)
	s.Equal("relay down", msg.LastError)

	count, err := s.store.PendingCount(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *StoreSuite) TestFeedDeliversToCollectionSubscribers() {
	feed := NewFeed()
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	sub, err := feed.Subscribe(ctx, "ngos/n1/donations")
	s.Require().NoError(err)

	dir := repository.Observe(s.store, feed, nil)
	s.Require().NoError(dir.Set(s.ctx, "ngos/n1/donations/d1", domain.Donation{ID: "d1", Status: domain.DonationPending}))
	s.Require().NoError(dir.Set(s.ctx, "ngos/n2/donations/d9", domain.Donation{ID: "d9"}))

	select {
	case change := <-sub.Changes():
		s.Equal("ngos/n1/donations/d1", change.Path)
		s.Equal(domain.ChangeSet, change.Kind)
	case <-time.After(time.Second):
		s.Fail("expected a change")
	}

	s.Require().NoError(sub.Close())
	_, open := <-sub.Changes()
	s.False(open)
}
