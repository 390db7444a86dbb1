package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/david-camba/kafky-event-driven-chat/domain"
)

type testSessionTakeoverSuite struct {
	BaseBackendSuite
}

func TestSessionTakeoverSuite(t *testing.T) {
	suite.Run(t, &testSessionTakeoverSuite{})
}

func (s *testSessionTakeoverSuite) TestNewerTabTakesOverTheRoom() {
	ctx := context.Background()
	s.SeedRoom(1, "alice", "bob")

	bobTr := NewRecordingTransport()
	bob := s.Gateway.NewConnection(bobTr)
	s.Gateway.Identify(bob, "bob", "")
	s.Gateway.Select(ctx, bob, 1, 0)

	firstTr := NewRecordingTransport()
	first := s.Gateway.NewConnection(firstTr)
	s.Gateway.Identify(first, "alice", "")
	s.Gateway.Select(ctx, first, 1, 0)

	secondTr := NewRecordingTransport()
	second := s.Gateway.NewConnection(secondTr)
	s.Gateway.Identify(second, "alice", "")

	s.Run("Step 1: the newer tab evicts the older one", func() {
		s.Gateway.Select(ctx, second, 1, 0)

		s.Require().Equal(domain.RoomID(0), first.ActiveRoom())
		s.Require().Equal(domain.RoomID(1), second.ActiveRoom())
		s.Require().Len(firstTr.Pushes(domain.PushSessionRevoked), 1)
		s.Require().Empty(secondTr.Pushes(domain.PushSessionRevoked))
	})

	s.Run("Step 2: the room survived with the new tab as member", func() {
		s.Require().True(s.Dispatcher.HasRoom(1))
		members := s.Dispatcher.Members(1)
		s.Require().Len(members, 2)
		s.Require().Contains(members, bob)
		s.Require().Contains(members, second)
		s.Require().NotContains(members, first)
	})

	s.Run("Step 3: broadcasts reach the new tab only", func() {
		s.Gateway.SendMessage(ctx, bob, "still there?")

		s.Require().Empty(firstTr.Pushes(domain.PushBroadcast))
		s.Require().Len(secondTr.Pushes(domain.PushBroadcast), 1)
		s.Require().Len(bobTr.Pushes(domain.PushBroadcast), 1)
	})

	s.Run("Step 4: the evicted tab cannot post anymore", func() {
		s.Gateway.SendMessage(ctx, first, "ghost message")

		rows, err := s.Messages.ListMessagesAfter(1, 0)
		s.Require().NoError(err)
		s.Require().Len(rows, 1)
		s.Require().Equal("still there?", rows[0].Content)
	})

	s.Run("Step 5: disconnecting the last member removes the room", func() {
		s.Gateway.Disconnect(ctx, first)
		s.Gateway.Disconnect(ctx, bob)
		s.Require().NoError(bobTr.Close())
		s.Gateway.Disconnect(ctx, second)

		s.Require().False(s.Dispatcher.HasRoom(1))
		s.Require().Empty(s.Gateway.Connections("alice"))
		s.Require().Empty(s.Gateway.Connections("bob"))
	})
}
