package services

import (
	"context"
	"log"

	"smartwaste-backend/internal/database"
	"smartwaste-backend/internal/metrics"
	"smartwaste-backend/internal/models"

	"github.com/jmoiron/sqlx"
)

// TokenSource looks up registered push device tokens
type TokenSource interface {
	TokensForUser(ctx context.Context, userID string) ([]string, error)
	AllTokens(ctx context.Context) ([]string, error)
}

type dbTokens struct {
	db *sqlx.DB
}

// NewDBTokenSource reads device tokens from the fcm_tokens table
func NewDBTokenSource(db *sqlx.DB) TokenSource {
	return dbTokens{db: db}
}

func (t dbTokens) TokensForUser(ctx context.Context, userID string) ([]string, error) {
	return database.GetFCMTokens(t.db, userID)
}

func (t dbTokens) AllTokens(ctx context.Context) ([]string, error) {
	return database.GetAllFCMTokens(t.db)
}

// Notifier fans a reward event out to email and push. The email result is
// what callers see; push is best effort.
type Notifier struct {
	email  *EmailService
	push   *PushService
	tokens TokenSource
}

// NewNotifier accepts a nil push service or token source, which disables push
func NewNotifier(email *EmailService, push *PushService, tokens TokenSource) *Notifier {
	return &Notifier{email: email, push: push, tokens: tokens}
}

func (n *Notifier) SendRewardConfirmation(ctx context.Context, user models.User, rewardName string, cost, newBalance int) error {
	err := n.email.SendRewardConfirmation(ctx, user.Email, user.DisplayName(), rewardName, cost, newBalance)
	metrics.RecordNotification("email", err == nil)

	if n.pushEnabled() {
		tokens, tokErr := n.tokens.TokensForUser(ctx, user.ID)
		if tokErr != nil {
			log.Printf("⚠️  Failed to load push tokens for user %s: %v", user.ID, tokErr)
		} else if len(tokens) > 0 {
			pushErr := n.push.SendRewardRedeemed(ctx, tokens, rewardName, cost, newBalance)
			metrics.RecordNotification("push", pushErr == nil)
			if pushErr != nil {
				log.Printf("⚠️  Push notification failed for user %s: %v", user.ID, pushErr)
			}
		}
	}

	return err
}

// SendWelcome greets a new user by email
func (n *Notifier) SendWelcome(ctx context.Context, user models.User) error {
	err := n.email.SendWelcome(ctx, user.Email, user.DisplayName())
	metrics.RecordNotification("email", err == nil)
	return err
}

// NotifyCommunityReward pushes a community award to every registered device
func (n *Notifier) NotifyCommunityReward(ctx context.Context, binLocation string, coins int) {
	if !n.pushEnabled() {
		return
	}
	tokens, err := n.tokens.AllTokens(ctx)
	if err != nil {
		log.Printf("⚠️  Failed to load push tokens: %v", err)
		return
	}
	err = n.push.SendCommunityReward(ctx, tokens, binLocation, coins)
	metrics.RecordNotification("push", err == nil)
	if err != nil {
		log.Printf("⚠️  Community push failed: %v", err)
	}
}

func (n *Notifier) pushEnabled() bool {
	return n.push != nil && n.tokens != nil
}
