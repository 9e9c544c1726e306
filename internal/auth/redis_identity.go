package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/2beens/pushpullrun/pkg"
)

var _ IdentityProvider = (*RedisIdentityProvider)(nil)

const (
	userKeyPrefix         = "identity||user||"
	emailKeyPrefix        = "identity||email||"
	userSessionsKeyPrefix = "identity||sessions||"
	sessionKeyPrefix      = "session||"
	tokensSetKey          = "sessions"
	resetKeyPrefix        = "reset||"

	ResetTokenTTL = time.Hour
)

// RedisIdentityProvider keeps identities and sessions in redis:
//
//	identity||user||{uid}       hash: email, password_hash, created_at
//	identity||email||{email}    uid
//	identity||sessions||{uid}   set of the user's session tokens
//	session||{token}            hash: uid, email, created_at
//	sessions                    set of all session tokens
//	reset||{token}              uid, expires after ResetTokenTTL
type RedisIdentityProvider struct {
	redisClient *redis.Client
	ttl         time.Duration
	mailer      Mailer

	// ability to inject random/time/hash funcs (for unit and dev testing)
	RandStringFunc    func(s int) (string, error)
	NewUIDFunc        func() string
	HashPasswordFunc  func(password string) (string, error)
	CheckPasswordFunc func(password, hash string) bool
	NowFunc           func() time.Time
}

func NewRedisIdentityProvider(
	ttl time.Duration,
	redisClient *redis.Client,
	mailer Mailer,
) *RedisIdentityProvider {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &RedisIdentityProvider{
		redisClient:       redisClient,
		ttl:               ttl,
		mailer:            mailer,
		RandStringFunc:    pkg.GenerateRandomString,
		NewUIDFunc:        uuid.NewString,
		HashPasswordFunc:  pkg.HashPassword,
		CheckPasswordFunc: pkg.CheckPasswordHash,
		NowFunc:           time.Now,
	}
}

func userKey(uid string) string {
	return userKeyPrefix + uid
}

func emailKey(email string) string {
	return emailKeyPrefix + email
}

func userSessionsKey(uid string) string {
	return userSessionsKeyPrefix + uid
}

func (p *RedisIdentityProvider) CreateUser(ctx context.Context, email, password string) (*Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := p.HashPasswordFunc(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	uid := p.NewUIDFunc()
	reserved, err := p.redisClient.SetNX(ctx, emailKey(email), uid, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve email: %w", err)
	}
	if !reserved {
		return nil, ErrEmailInUse
	}

	if err := p.redisClient.HSet(ctx, userKey(uid),
		"email", email,
		"password_hash", passwordHash,
		"created_at", p.NowFunc().Unix(),
	).Err(); err != nil {
		if delErr := p.redisClient.Del(ctx, emailKey(email)).Err(); delErr != nil {
			log.Errorf("create user %s: release email after failed write: %s", email, delErr)
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	session, err := p.openSession(ctx, uid, email)
	if err != nil {
		// undo the identity, the email must be free for a retry
		if delErr := p.redisClient.Del(ctx, userKey(uid), emailKey(email)).Err(); delErr != nil {
			log.Errorf("create user %s: roll back after failed session: %s", email, delErr)
			err = multierr.Append(err, delErr)
		}
		return nil, err
	}
	return session, nil
}

func (p *RedisIdentityProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	uid, err := p.redisClient.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("get user id: %w", err)
	}

	passwordHash, err := p.redisClient.HGet(ctx, userKey(uid), "password_hash").Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("get password hash: %w", err)
	}

	if !p.CheckPasswordFunc(password, passwordHash) {
		return nil, ErrInvalidCredentials
	}

	return p.openSession(ctx, uid, email)
}

func (p *RedisIdentityProvider) openSession(ctx context.Context, uid, email string) (*Session, error) {
	token, err := p.RandStringFunc(tokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	createdAt := p.NowFunc()
	// the session hash and both token sets are written in one MULTI/EXEC
	if _, err := p.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, sessionKeyPrefix+token,
			"uid", uid,
			"email", email,
			"created_at", createdAt.Unix(),
		)
		pipe.SAdd(ctx, tokensSetKey, token)
		pipe.SAdd(ctx, userSessionsKey(uid), token)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &Session{
		Token:     token,
		UID:       uid,
		Email:     email,
		CreatedAt: time.Unix(createdAt.Unix(), 0),
	}, nil
}

func (p *RedisIdentityProvider) getSession(ctx context.Context, token string) (*Session, error) {
	fields, err := p.redisClient.HGetAll(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(fields) == 0 || fields["uid"] == "" {
		return nil, ErrSessionNotFound
	}

	createdAtUnix, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse session created_at: %w", err)
	}

	return &Session{
		Token:     token,
		UID:       fields["uid"],
		Email:     fields["email"],
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}

func (p *RedisIdentityProvider) expired(session *Session) bool {
	return p.ttl > 0 && p.NowFunc().Sub(session.CreatedAt) > p.ttl
}

func (p *RedisIdentityProvider) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}
	session, err := p.getSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if p.expired(session) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (p *RedisIdentityProvider) SignOut(ctx context.Context, token string) error {
	uid, err := p.redisClient.HGet(ctx, sessionKeyPrefix+token, "uid").Result()
	if errors.Is(err, redis.Nil) {
		return ErrSessionNotFound
	} else if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	return p.removeSession(ctx, token, uid)
}

func (p *RedisIdentityProvider) removeSession(ctx context.Context, token, uid string) error {
	if err := p.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	// remove token from the list of sessions
	if err := p.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	if err := p.redisClient.SRem(ctx, userSessionsKey(uid), token).Err(); err != nil {
		return fmt.Errorf("remove user session: %w", err)
	}
	return nil
}

// DeleteUser removes the identity together with all of its sessions.
func (p *RedisIdentityProvider) DeleteUser(ctx context.Context, uid string) error {
	email, err := p.redisClient.HGet(ctx, userKey(uid), "email").Result()
	if errors.Is(err, redis.Nil) {
		return ErrUserNotFound
	} else if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	tokens, err := p.redisClient.SMembers(ctx, userSessionsKey(uid)).Result()
	if err != nil {
		return fmt.Errorf("get user sessions: %w", err)
	}

	var sessionsErr error
	for _, token := range tokens {
		if err := p.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			sessionsErr = multierr.Append(sessionsErr, err)
			continue
		}
		if err := p.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			sessionsErr = multierr.Append(sessionsErr, err)
		}
	}
	if sessionsErr != nil {
		return fmt.Errorf("delete user sessions: %w", sessionsErr)
	}

	if err := p.redisClient.Del(ctx, userKey(uid), emailKey(email), userSessionsKey(uid)).Err(); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (p *RedisIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	uid, err := p.redisClient.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrUserNotFound
	} else if err != nil {
		return fmt.Errorf("get user id: %w", err)
	}

	resetToken, err := p.RandStringFunc(tokenLength)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := p.redisClient.Set(ctx, resetKeyPrefix+resetToken, uid, ResetTokenTTL).Err(); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}

	return p.mailer.SendPasswordReset(ctx, email, resetToken)
}

func (p *RedisIdentityProvider) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if err := checkPassword(newPassword); err != nil {
		return err
	}

	resetKey := resetKeyPrefix + resetToken
	uid, err := p.redisClient.Get(ctx, resetKey).Result()
	if errors.Is(err, redis.Nil) {
		return ErrInvalidResetToken
	} else if err != nil {
		return fmt.Errorf("get reset token: %w", err)
	}

	passwordHash, err := p.HashPasswordFunc(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := p.redisClient.HSet(ctx, userKey(uid), "password_hash", passwordHash).Err(); err != nil {
		return fmt.Errorf("save password: %w", err)
	}
	if err := p.redisClient.Del(ctx, resetKey).Err(); err != nil {
		log.Errorf("delete used reset token for user %s: %s", uid, err)
	}
	return nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old.
// Returns the number of removed expired sessions.
func (p *RedisIdentityProvider) ScanAndClean(ctx context.Context) int {
	sessionTokens, err := p.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("!!! identity provider, scan and clean, get sessions: %s", err)
		return 0
	}

	if len(sessionTokens) == 0 {
		log.Debugln("=> identity provider, scan and clean abort, no sessions")
		return 0
	}

	log.Debugf("=> identity provider, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []*Session
	for _, token := range sessionTokens {
		session, err := p.getSession(ctx, token)
		if errors.Is(err, ErrSessionNotFound) {
			// dangling token, the session hash is already gone
			if err := p.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
				log.Errorf("=> identity provider, clean dangling token: %s", err)
			}
			continue
		} else if err != nil {
			log.Errorf("=> identity provider, scan and clean token: %s", err)
			continue
		}

		if p.expired(session) {
			toRemove = append(toRemove, session)
		}
	}

	cleaned := 0
	for _, session := range toRemove {
		log.Debugf("=>\twill clean the session of user: %s", session.UID)
		if err := p.removeSession(ctx, session.Token, session.UID); err != nil {
			log.Errorf("=> identity provider, clean session of user %s: %s", session.UID, err)
			continue
		}
		cleaned++
	}
	return cleaned
}
