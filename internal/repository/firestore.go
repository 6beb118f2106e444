package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medreminder/internal/model"
)

// FirestoreCollections names the collections of the document-store layout.
type FirestoreCollections struct {
	Schedules string // documents {name, dosage, time, userId}
	History   string // subcollection of a schedule, documents {takenAt}
	Users     string // documents {fcmTokens, fcmToken}
}

// FirestoreStore serves schedules, intake history and endpoints from Firestore.
type FirestoreStore struct {
	client *firestore.Client
	cols   FirestoreCollections
	log    *zap.Logger
}

func NewFirestoreStore(client *firestore.Client, cols FirestoreCollections, log *zap.Logger) *FirestoreStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FirestoreStore{client: client, cols: cols, log: log.Named("firestore")}
}

// FindByTimeOfDay queries schedules with time == bucket. Documents that fail
// to decode or validate are logged and skipped rather than failing the whole query.
func (s *FirestoreStore) FindByTimeOfDay(ctx context.Context, bucket string) ([]model.Schedule, error) {
	docs, err := s.client.Collection(s.cols.Schedules).
		Where("time", "==", bucket).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("find schedules by time of day: %w", err)
	}

	schedules := make([]model.Schedule, 0, len(docs))
	for _, doc := range docs {
		var sch model.Schedule
		decodeErr := doc.DataTo(&sch)
		sch.ID = doc.Ref.ID
		if s.usableSchedule(sch, decodeErr) {
			schedules = append(schedules, sch)
		}
	}
	return schedules, nil
}

// usableSchedule reports whether a decoded schedule document can be
// dispatched, logging the document ID when it cannot.
func (s *FirestoreStore) usableSchedule(sch model.Schedule, decodeErr error) bool {
	err := decodeErr
	if err == nil {
		err = sch.Validate()
	}
	if err != nil {
		s.log.Warn("skipping malformed schedule document",
			zap.String("collection", s.cols.Schedules),
			zap.String("doc_id", sch.ID),
			zap.Error(err),
		)
		return false
	}
	return true
}

// ExistsForDay looks for any history entry whose takenAt falls inside day.
func (s *FirestoreStore) ExistsForDay(ctx context.Context, scheduleID string, day model.Day) (bool, error) {
	iter := s.client.Collection(s.cols.Schedules).Doc(scheduleID).Collection(s.cols.History).
		Where("takenAt", ">=", day.Start).
		Where("takenAt", "<", day.End).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check intake history: %w", err)
	}
	return true, nil
}

func (s *FirestoreStore) Name() string {
	return "firestore:" + s.cols.Users
}

// userEndpoints is the users document. Both shapes are still written by
// older clients, so both are read.
type userEndpoints struct {
	FCMTokens []string `firestore:"fcmTokens"`
	FCMToken  string   `firestore:"fcmToken"`
}

func (u userEndpoints) tokens() []string {
	out := make([]string, 0, len(u.FCMTokens)+1)
	out = append(out, u.FCMTokens...)
	if u.FCMToken != "" {
		out = append(out, u.FCMToken)
	}
	return out
}

// EndpointsForUser reads both token fields. A missing user document is an empty set.
func (s *FirestoreStore) EndpointsForUser(ctx context.Context, userID string) ([]string, error) {
	snap, err := s.client.Collection(s.cols.Users).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}

	var u userEndpoints
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return u.tokens(), nil
}

// RemoveEndpoint drops token from fcmTokens and clears fcmToken if it matches.
func (s *FirestoreStore) RemoveEndpoint(ctx context.Context, userID, token string) error {
	ref := s.client.Collection(s.cols.Users).Doc(userID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var u userEndpoints
		if err := snap.DataTo(&u); err != nil {
			return err
		}

		updates := []firestore.Update{{Path: "fcmTokens", Value: firestore.ArrayRemove(token)}}
		if u.FCMToken == token {
			updates = append(updates, firestore.Update{Path: "fcmToken", Value: firestore.Delete})
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("remove endpoint for user %s: %w", userID, err)
	}
	return nil
}
