package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subtrack/subtrack/internal/authstate"
	"github.com/subtrack/subtrack/internal/bot"
	"github.com/subtrack/subtrack/internal/models"
	"github.com/subtrack/subtrack/internal/scan"
	"github.com/subtrack/subtrack/internal/store"
)

type fakeSubs struct {
	subs []models.Subscription
}

func (f *fakeSubs) FindByProvider(_ context.Context, _ uuid.UUID, _ string) (*models.Subscription, error) {
	return nil, store.ErrNotFound
}

func (f *fakeSubs) Create(_ context.Context, sub *models.Subscription) (*models.Subscription, error) {
	return sub, nil
}

func (f *fakeSubs) Update(_ context.Context, _ uuid.UUID, _ store.UpdateFields) (*models.Subscription, error) {
	return nil, store.ErrNotFound
}

func (f *fakeSubs) ListByUser(_ context.Context, _ uuid.UUID) ([]models.Subscription, error) {
	return f.subs, nil
}

func (f *fakeSubs) ListDueBetween(_ context.Context, _, _ time.Time) ([]models.Subscription, error) {
	return nil, nil
}

func (f *fakeSubs) ExpireOverdue(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

func (f *fakeSubs) Delete(_ context.Context, _ uuid.UUID, _ string) error { return store.ErrNotFound }

type fakeUsers struct {
	user models.User
	err  error
}

func (f *fakeUsers) Get(_ context.Context, _ uuid.UUID) (models.User, error) { return f.user, f.err }
func (f *fakeUsers) List(_ context.Context) ([]models.User, error)           { return nil, nil }
func (f *fakeUsers) FindByChatID(_ context.Context, _ string) (models.User, error) {
	return f.user, f.err
}
func (f *fakeUsers) BindChat(_ context.Context, _ uuid.UUID, _ string) error          { return nil }
func (f *fakeUsers) TouchScan(_ context.Context, _ uuid.UUID, _ time.Time) error      { return nil }
func (f *fakeUsers) RecordReceived(_ context.Context, _ uuid.UUID, _ time.Time) error { return nil }

type fakeScanner struct {
	res scan.Result
}

func (f *fakeScanner) ScanNow(_ context.Context, _ uuid.UUID) (scan.Result, error) {
	return f.res, nil
}

func testRouter(users *fakeUsers, states authstate.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	subs := &fakeSubs{}
	scanner := &fakeScanner{}
	dispatcher := bot.NewDispatcher(subs, users, scanner, states)
	return NewServer(subs, users, scanner, dispatcher, states).Router()
}

func TestHandleLinkTokenRoundTrip(t *testing.T) {
	states := authstate.NewMemory(authstate.DefaultTTL)
	defer states.Close()

	userID := uuid.New()
	router := testRouter(&fakeUsers{user: models.User{ID: userID}}, states)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/"+userID.String()+"/link", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	value, ok, err := states.Take(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, userID.String(), value)
}

func TestHandleLinkTokenUnknownUser(t *testing.T) {
	states := authstate.NewMemory(authstate.DefaultTTL)
	defer states.Close()

	router := testRouter(&fakeUsers{err: store.ErrNotFound}, states)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users/"+uuid.NewString()+"/link", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleBotWebhookRequiresChatID(t *testing.T) {
	states := authstate.NewMemory(authstate.DefaultTTL)
	defer states.Close()

	router := testRouter(&fakeUsers{}, states)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bot/webhook", strings.NewReader(`{"text":"list"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleListSubscriptionsBadID(t *testing.T) {
	states := authstate.NewMemory(authstate.DefaultTTL)
	defer states.Close()

	router := testRouter(&fakeUsers{}, states)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/not-a-uuid/subscriptions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
