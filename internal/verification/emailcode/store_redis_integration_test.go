//go:build integration

package emailcode_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"civic/internal/verification/emailcode"
	id "civic/pkg/domain"
	"civic/pkg/platform/sentinel"
	"civic/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	codes *emailcode.Codes
	store *emailcode.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = emailcode.NewRedisStore(s.redis.Client)
	s.codes = emailcode.New(s.store, time.Minute, 2, emailcode.WithCost(bcrypt.MinCost))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestIssueVerifyRoundTrip() {
	ctx := context.Background()
	user := id.UserID(uuid.New())

	code, err := s.codes.Issue(ctx, user, "jane@example.org")
	s.Require().NoError(err)

	ttl, err := s.redis.Client.TTL(ctx, "civic:emailcode:"+user.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))

	email, err := s.codes.Verify(ctx, user, code)
	s.Require().NoError(err)
	s.Equal("jane@example.org", email)
}

func (s *RedisStoreSuite) TestConsumeMissingKeyDoesNotCreateIt() {
	ctx := context.Background()
	user := id.UserID(uuid.New())

	_, _, err := s.store.Consume(ctx, user)
	s.ErrorIs(err, sentinel.ErrNotFound)

	n, err := s.redis.Client.Exists(ctx, "civic:emailcode:"+user.String()).Result()
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RedisStoreSuite) TestAttemptsAreCounted() {
	ctx := context.Background()
	user := id.UserID(uuid.New())

	_, err := s.codes.Issue(ctx, user, "jane@example.org")
	s.Require().NoError(err)

	for want := 1; want <= 3; want++ {
		_, attempts, err := s.store.Consume(ctx, user)
		s.Require().NoError(err)
		s.Equal(want, attempts)
	}
}
