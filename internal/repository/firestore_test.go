package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"medreminder/internal/model"
)

func TestUserEndpoints_Tokens(t *testing.T) {
	u := userEndpoints{FCMTokens: []string{"tokA", "tokA"}, FCMToken: "tokB"}
	assert.Equal(t, []string{"tokA", "tokA", "tokB"}, u.tokens())

	assert.Empty(t, userEndpoints{}.tokens())
}

func TestFirestoreStore_UsableScheduleLogsRejects(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := NewFirestoreStore(nil, FirestoreCollections{Schedules: "medicamentos"}, zap.New(core))

	good := model.Schedule{ID: "s1", DisplayName: "Ibuprofeno", DosageLabel: "1 cp", TimeOfDay: "08:00", OwnerUserID: "u1"}
	assert.True(t, store.usableSchedule(good, nil))
	assert.Equal(t, 0, logs.Len())

	typo := good
	typo.ID = "s-typo"
	typo.TimeOfDay = "8:00"
	assert.False(t, store.usableSchedule(typo, nil))

	assert.False(t, store.usableSchedule(model.Schedule{ID: "s-bad"}, errors.New("cannot set type string to int64")))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "s-typo", entries[0].ContextMap()["doc_id"])
	assert.Equal(t, "medicamentos", entries[0].ContextMap()["collection"])
	assert.Equal(t, "s-bad", entries[1].ContextMap()["doc_id"])
}

// setupFirestore connects to the emulator; the test is skipped without one.
func setupFirestore(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping Firestore test")
	}

	client, err := firestore.NewClient(context.Background(), "medreminder-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestFirestoreStore_Integration(t *testing.T) {
	client := setupFirestore(t)
	ctx := context.Background()

	cols := FirestoreCollections{
		Schedules: "medicamentos_" + t.Name(),
		History:   "historico",
		Users:     "users_" + t.Name(),
	}
	store := NewFirestoreStore(client, cols, zap.NewNop())

	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	dayStart := time.Date(2025, time.March, 10, 0, 0, 0, 0, loc)
	day := model.Day{Key: "2025-03-10", Start: dayStart, End: dayStart.AddDate(0, 0, 1)}

	_, err = client.Collection(cols.Schedules).Doc("s1").Set(ctx, map[string]interface{}{
		"name": "Ibuprofeno", "dosage": "1 cp", "time": "08:00", "userId": "u1",
	})
	require.NoError(t, err)
	_, err = client.Collection(cols.Schedules).Doc("s2").Set(ctx, map[string]interface{}{
		"name": "Dipirona", "dosage": "20 gotas", "time": "08:01", "userId": "u1",
	})
	require.NoError(t, err)
	_, err = client.Collection(cols.Schedules).Doc("s3").Set(ctx, map[string]interface{}{
		"name": "Losartana", "dosage": "50mg", "time": "08:00", "userId": "",
	})
	require.NoError(t, err)
	_, err = client.Collection(cols.Users).Doc("u1").Set(ctx, map[string]interface{}{
		"fcmTokens": []string{"tokA", "tokB"}, "fcmToken": "tokA",
	})
	require.NoError(t, err)

	due, err := store.FindByTimeOfDay(ctx, "08:00")
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "s1", due[0].ID)
	assert.Equal(t, "1 cp", due[0].DosageLabel)

	taken, err := store.ExistsForDay(ctx, "s1", day)
	require.NoError(t, err)
	assert.False(t, taken)

	_, _, err = client.Collection(cols.Schedules).Doc("s1").Collection(cols.History).
		Add(ctx, map[string]interface{}{"takenAt": dayStart.Add(8*time.Hour + 5*time.Minute)})
	require.NoError(t, err)

	taken, err = store.ExistsForDay(ctx, "s1", day)
	require.NoError(t, err)
	assert.True(t, taken)

	tokens, err := store.EndpointsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tokA", "tokB", "tokA"}, tokens)

	missing, err := store.EndpointsForUser(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, missing)

	require.NoError(t, store.RemoveEndpoint(ctx, "u1", "tokA"))
	tokens, err = store.EndpointsForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tokB"}, tokens)
}
