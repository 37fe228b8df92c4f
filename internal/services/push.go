package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// messenger is the subset of the Firebase messaging client we use
type messenger interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// PushService handles Firebase Cloud Messaging
type PushService struct {
	client messenger
}

// NewPushService creates a push service from a credentials file
func NewPushService(ctx context.Context, credentialsFile string) (*PushService, error) {
	return newPushService(ctx, option.WithCredentialsFile(credentialsFile))
}

// NewPushServiceFromBase64 creates a push service from base64-encoded
// credentials, for hosts where uploading a file is awkward
func NewPushServiceFromBase64(ctx context.Context, credentialsBase64 string) (*PushService, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	return newPushService(ctx, option.WithCredentialsJSON(credentialsJSON))
}

func newPushService(ctx context.Context, opt option.ClientOption) (*PushService, error) {
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &PushService{client: client}, nil
}

// SendRewardRedeemed notifies a user's devices that a redemption went through
func (s *PushService) SendRewardRedeemed(ctx context.Context, tokens []string, rewardName string, cost, newBalance int) error {
	return s.multicast(ctx, tokens,
		"Reward redeemed!",
		fmt.Sprintf("%s is on its way. %d coins left.", rewardName, newBalance),
		map[string]string{
			"type":        "reward_redeemed",
			"reward_name": rewardName,
			"cost":        strconv.Itoa(cost),
			"new_balance": strconv.Itoa(newBalance),
		})
}

// SendCommunityReward tells every registered device about a community award
func (s *PushService) SendCommunityReward(ctx context.Context, tokens []string, binLocation string, coins int) error {
	return s.multicast(ctx, tokens,
		"Community reward",
		fmt.Sprintf("The bin at %s filled up. Everyone earned %d coins!", binLocation, coins),
		map[string]string{
			"type":  "community_reward",
			"coins": strconv.Itoa(coins),
		})
}

// multicastLimit is the FCM cap on tokens per multicast request
const multicastLimit = 500

func (s *PushService) multicast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	if len(tokens) == 0 {
		return nil
	}

	for start := 0; start < len(tokens); start += multicastLimit {
		end := min(start+multicastLimit, len(tokens))
		message := &messaging.MulticastMessage{
			Tokens: tokens[start:end],
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
			APNS: &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{
					Aps: &messaging.Aps{
						ContentAvailable: true,
						Sound:            "default",
					},
				},
			},
		}

		response, err := s.client.SendEachForMulticast(ctx, message)
		if err != nil {
			return fmt.Errorf("error sending multicast message: %w", err)
		}
		log.Printf("✅ Multicast sent: %d success, %d failures", response.SuccessCount, response.FailureCount)
	}
	return nil
}
