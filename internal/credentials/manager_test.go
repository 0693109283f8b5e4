package credentials

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/criteo/social-connect/internal/launcher"
	"github.com/criteo/social-connect/internal/models"
	"github.com/criteo/social-connect/internal/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// faultyStore wraps a MemoryStorage and fails selected operations
type faultyStore struct {
	*storage.MemoryStorage
	getErr    error
	setErr    error
	deleteErr error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStorage: storage.NewMemoryStorage(testLogger())}
}

func (s *faultyStore) GetString(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	return s.MemoryStorage.GetString(ctx, key)
}

func (s *faultyStore) Set(ctx context.Context, key, value string) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.MemoryStorage.Set(ctx, key, value)
}

func (s *faultyStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStorage.Delete(ctx, key)
}

type fakeLauncher struct {
	canOpen  bool
	checkErr error
	openErr  error
	panicOn  string
	opened   []string
}

func (l *fakeLauncher) CanOpenURL(ctx context.Context, rawURL string) (bool, error) {
	if l.panicOn == "check" {
		panic("capability check exploded")
	}
	return l.canOpen, l.checkErr
}

func (l *fakeLauncher) OpenURL(ctx context.Context, rawURL string) error {
	if l.panicOn == "open" {
		panic("open exploded")
	}
	if l.openErr != nil {
		return l.openErr
	}
	l.opened = append(l.opened, rawURL)
	return nil
}

type fakeAuthorizer struct {
	err error
}

func (a fakeAuthorizer) AuthorizationURL(p models.Platform) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	return "https://auth.example.com/" + string(p) + "?state=s", nil
}

func newTestManager(store storage.Store, l *fakeLauncher) *Manager {
	var ln launcher.Launcher
	if l != nil {
		ln = l
	}
	return NewManager(store, ln, fakeAuthorizer{},
		WithLogger(testLogger()),
		WithClock(func() time.Time { return testNow }))
}

func millis(t time.Time) *int64 {
	return models.ExpiresAtMillis(t)
}

func sampleCredential() *models.PlatformCredential {
	return &models.PlatformCredential{
		AccessToken:      "t1",
		PlatformUserID:   "u1",
		PlatformUsername: "alice",
		Scopes:           []string{"read"},
	}
}

func TestManager_NoRecord(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	for _, p := range models.AllPlatforms() {
		assert.False(t, m.IsConnected(ctx, p), p)
		assert.Nil(t, m.GetStoredCredentials(ctx, p), p)
	}
	assert.Empty(t, m.GetConnectedPlatforms(ctx))
	assert.NotNil(t, m.GetConnectedPlatforms(ctx))
}

func TestManager_StoreWithoutExpiryIsConnected(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	require.NoError(t, m.StoreCredentials(ctx, models.Facebook, sampleCredential()))
	assert.True(t, m.IsConnected(ctx, models.Facebook))
}

// Platform is set on the input too: StoreCredentials always records it
func TestManager_StoreRoundTrip(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	cred := &models.PlatformCredential{
		Platform:         models.LinkedIn,
		AccessToken:      "access",
		RefreshToken:     "refresh",
		ExpiresAt:        millis(testNow.Add(time.Hour)),
		PlatformUserID:   "urn:li:person:42",
		PlatformUsername: "Ada Lovelace",
		Scopes:           []string{"openid", "profile", "w_member_social"},
	}
	require.NoError(t, m.StoreCredentials(ctx, models.LinkedIn, cred))

	got := m.GetStoredCredentials(ctx, models.LinkedIn)
	require.NotNil(t, got)
	assert.Equal(t, cred, got)
}

func TestManager_StoreStampsPlatform(t *testing.T) {
	store := storage.NewMemoryStorage(testLogger())
	m := newTestManager(store, nil)
	ctx := context.Background()

	cred := sampleCredential()
	require.NoError(t, m.StoreCredentials(ctx, models.TikTok, cred))
	assert.Empty(t, cred.Platform, "caller's credential must not be modified")

	raw, err := store.GetString(ctx, "oauth_tiktok")
	require.NoError(t, err)
	assert.JSONEq(t, `{"platform":"tiktok","accessToken":"t1","platformUserId":"u1","platformUsername":"alice","scopes":["read"]}`, raw)
}

func TestManager_ExpiredIsNotConnectedButStillReadable(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	cred := sampleCredential()
	cred.ExpiresAt = millis(testNow.Add(-time.Second))
	require.NoError(t, m.StoreCredentials(ctx, models.Facebook, cred))

	assert.False(t, m.IsConnected(ctx, models.Facebook))
	got := m.GetStoredCredentials(ctx, models.Facebook)
	require.NotNil(t, got)
	assert.Equal(t, "t1", got.AccessToken)
}

func TestManager_ExpiryBoundary(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	cred := sampleCredential()
	cred.ExpiresAt = millis(testNow)
	require.NoError(t, m.StoreCredentials(ctx, models.Twitter, cred))
	assert.False(t, m.IsConnected(ctx, models.Twitter), "expiresAt == now is expired")

	cred.ExpiresAt = millis(testNow.Add(time.Millisecond))
	require.NoError(t, m.StoreCredentials(ctx, models.Twitter, cred))
	assert.True(t, m.IsConnected(ctx, models.Twitter))
}

func TestManager_CorruptRecordIsAbsent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "not-json"},
		{"wrong type", `{"accessToken": 42}`},
		{"missing access token", `{"platformUserId":"u1"}`},
		{"unknown platform", `{"platform":"myspace","accessToken":"t"}`},
		{"other platform's record", `{"platform":"facebook","accessToken":"t"}`},
		{"json array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage(testLogger())
			m := newTestManager(store, nil)
			ctx := context.Background()

			require.NoError(t, store.Set(ctx, "oauth_twitter", tt.raw))
			assert.Nil(t, m.GetStoredCredentials(ctx, models.Twitter))
			assert.False(t, m.IsConnected(ctx, models.Twitter))
		})
	}
}

func TestManager_LegacyRecordsAreConnected(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *models.PlatformCredential
	}{
		{
			name: "empty scope entry",
			raw:  `{"platform":"instagram","accessToken":"t","platformUserId":"u1","platformUsername":"alice","scopes":[""]}`,
			want: &models.PlatformCredential{
				Platform:         models.Instagram,
				AccessToken:      "t",
				PlatformUserID:   "u1",
				PlatformUsername: "alice",
				Scopes:           []string{""},
			},
		},
		{
			name: "fractional expiry",
			raw:  `{"accessToken":"t","expiresAt":1893456000000.5,"platformUserId":"u1","platformUsername":"alice","scopes":["read"]}`,
			want: &models.PlatformCredential{
				AccessToken:      "t",
				ExpiresAt:        millis(time.UnixMilli(1893456000000)),
				PlatformUserID:   "u1",
				PlatformUsername: "alice",
				Scopes:           []string{"read"},
			},
		},
		{
			name: "no platform field",
			raw:  `{"accessToken":"t","platformUserId":"","platformUsername":"","scopes":[]}`,
			want: &models.PlatformCredential{AccessToken: "t", Scopes: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage(testLogger())
			m := newTestManager(store, nil)
			ctx := context.Background()

			require.NoError(t, store.Set(ctx, "oauth_instagram", tt.raw))
			assert.Equal(t, tt.want, m.GetStoredCredentials(ctx, models.Instagram))
			assert.True(t, m.IsConnected(ctx, models.Instagram))
			assert.Equal(t, []models.Platform{models.Instagram}, m.GetConnectedPlatforms(ctx))
		})
	}
}

func TestManager_ReadFailureIsAbsent(t *testing.T) {
	store := newFaultyStore()
	m := newTestManager(store, nil)
	ctx := context.Background()

	require.NoError(t, m.StoreCredentials(ctx, models.YouTube, sampleCredential()))
	store.getErr = storage.ErrStorageUnavailable

	assert.Nil(t, m.GetStoredCredentials(ctx, models.YouTube))
	assert.False(t, m.IsConnected(ctx, models.YouTube))
}

func TestManager_GetConnectedPlatformsUsesEnumOrder(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	require.NoError(t, m.StoreCredentials(ctx, models.Facebook, sampleCredential()))
	require.NoError(t, m.StoreCredentials(ctx, models.Instagram, sampleCredential()))

	assert.Equal(t, []models.Platform{models.Instagram, models.Facebook}, m.GetConnectedPlatforms(ctx))
}

func TestManager_GetConnectedPlatformsSkipsExpired(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	expired := sampleCredential()
	expired.ExpiresAt = millis(testNow.Add(-time.Minute))
	valid := sampleCredential()
	valid.ExpiresAt = millis(testNow.Add(time.Minute))

	require.NoError(t, m.StoreCredentials(ctx, models.TikTok, valid))
	require.NoError(t, m.StoreCredentials(ctx, models.YouTube, expired))
	require.NoError(t, m.StoreCredentials(ctx, models.Twitter, sampleCredential()))

	assert.Equal(t, []models.Platform{models.Twitter, models.TikTok}, m.GetConnectedPlatforms(ctx))
}

func TestManager_StoreFailureIsStorageError(t *testing.T) {
	store := newFaultyStore()
	store.setErr = errors.Join(storage.ErrStorageUnavailable, errors.New("disk full"))
	m := newTestManager(store, nil)

	err := m.StoreCredentials(context.Background(), models.Instagram, sampleCredential())
	require.Error(t, err)

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, models.Instagram, storageErr.Platform)
	assert.Equal(t, "store", storageErr.Op)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "instagram")
}

func TestManager_StoreRejectsInvalid(t *testing.T) {
	store := newFaultyStore()
	m := newTestManager(store, nil)
	ctx := context.Background()

	var validationErr *models.ValidationError

	err := m.StoreCredentials(ctx, models.Facebook, &models.PlatformCredential{PlatformUserID: "u"})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "accessToken", validationErr.Field)

	err = m.StoreCredentials(ctx, models.Facebook, nil)
	require.ErrorAs(t, err, &validationErr)

	blankScope := sampleCredential()
	blankScope.Scopes = []string{""}
	err = m.StoreCredentials(ctx, models.Facebook, blankScope)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "scopes[0]", validationErr.Field)

	mismatched := sampleCredential()
	mismatched.Platform = models.Twitter
	err = m.StoreCredentials(ctx, models.Facebook, mismatched)
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "platform", validationErr.Field)

	err = m.StoreCredentials(ctx, models.Platform("myspace"), sampleCredential())
	assert.ErrorIs(t, err, models.ErrUnsupportedPlatform)

	assert.Equal(t, 0, store.Len(), "nothing is written for rejected credentials")
}

func TestManager_RemoveCredentials(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	require.NoError(t, m.StoreCredentials(ctx, models.LinkedIn, sampleCredential()))
	m.RemoveCredentials(ctx, models.LinkedIn)
	assert.Nil(t, m.GetStoredCredentials(ctx, models.LinkedIn))

	assert.NotPanics(t, func() { m.RemoveCredentials(ctx, models.LinkedIn) })
	assert.NotPanics(t, func() { m.RemoveCredentials(ctx, models.Platform("myspace")) })
}

func TestManager_RemoveFailureIsSwallowed(t *testing.T) {
	store := newFaultyStore()
	m := newTestManager(store, nil)
	ctx := context.Background()

	require.NoError(t, m.StoreCredentials(ctx, models.LinkedIn, sampleCredential()))
	store.deleteErr = storage.ErrStorageUnavailable

	assert.NotPanics(t, func() { m.RemoveCredentials(ctx, models.LinkedIn) })
	// Accepted risk: the stale record stays readable
	assert.True(t, m.IsConnected(ctx, models.LinkedIn))
}

func TestManager_GetPlatformConfig(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)

	for _, p := range models.AllPlatforms() {
		cfg, err := m.GetPlatformConfig(p)
		require.NoError(t, err, p)
		assert.NotEmpty(t, cfg.Name, p)
		assert.NotEmpty(t, cfg.Color, p)
		assert.NotEmpty(t, cfg.Scopes, p)
	}

	_, err := m.GetPlatformConfig(models.Platform("myspace"))
	assert.ErrorIs(t, err, models.ErrUnsupportedPlatform)
}

func TestManager_Status(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	ctx := context.Background()

	status, err := m.Status(ctx, models.Instagram)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionStatus{Platform: models.Instagram, Name: "Instagram", Color: status.Color}, status)
	assert.False(t, status.Connected)

	cred := sampleCredential()
	cred.RefreshToken = "r"
	cred.ExpiresAt = millis(testNow.Add(-time.Hour))
	require.NoError(t, m.StoreCredentials(ctx, models.Instagram, cred))

	status, err = m.Status(ctx, models.Instagram)
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.True(t, status.Expired)
	assert.True(t, status.HasRefreshToken)
	assert.Equal(t, "alice", status.PlatformUsername)
	assert.Equal(t, cred.ExpiresAt, status.ExpiresAt)

	_, err = m.Status(ctx, models.Platform("myspace"))
	assert.ErrorIs(t, err, models.ErrUnsupportedPlatform)
}

func TestManager_StartOAuthFlow(t *testing.T) {
	l := &fakeLauncher{canOpen: true}
	m := newTestManager(storage.NewMemoryStorage(testLogger()), l)

	assert.True(t, m.StartOAuthFlow(context.Background(), models.YouTube))
	assert.Equal(t, []string{"https://auth.example.com/youtube?state=s"}, l.opened)
	assert.Nil(t, m.GetStoredCredentials(context.Background(), models.YouTube), "starting a flow stores nothing")
}

func TestManager_StartOAuthFlowFailures(t *testing.T) {
	tests := []struct {
		name     string
		launcher *fakeLauncher
	}{
		{"no handler", &fakeLauncher{canOpen: false}},
		{"capability check errors", &fakeLauncher{checkErr: errors.New("lsregister unavailable")}},
		{"capability check panics", &fakeLauncher{canOpen: true, panicOn: "check"}},
		{"open errors", &fakeLauncher{canOpen: true, openErr: errors.New("exec: no such file")}},
		{"open panics", &fakeLauncher{canOpen: true, panicOn: "open"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(storage.NewMemoryStorage(testLogger()), tt.launcher)
			var ok bool
			assert.NotPanics(t, func() { ok = m.StartOAuthFlow(context.Background(), models.Instagram) })
			assert.False(t, ok)
		})
	}
}

func TestManager_LaunchOAuthFlowReturnsURLOnFailure(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), &fakeLauncher{canOpen: false})

	authURL, err := m.LaunchOAuthFlow(context.Background(), models.Twitter)
	assert.ErrorIs(t, err, ErrNoURLHandler)
	assert.Equal(t, "https://auth.example.com/twitter?state=s", authURL)
}

func TestManager_StartOAuthFlowWithoutCollaborators(t *testing.T) {
	m := newTestManager(storage.NewMemoryStorage(testLogger()), nil)
	assert.False(t, m.StartOAuthFlow(context.Background(), models.Facebook))

	m = NewManager(storage.NewMemoryStorage(testLogger()), &fakeLauncher{canOpen: true},
		fakeAuthorizer{err: errors.New("no client id configured")}, WithLogger(testLogger()))
	assert.False(t, m.StartOAuthFlow(context.Background(), models.Facebook))

	_, err := m.LaunchOAuthFlow(context.Background(), models.Platform("myspace"))
	assert.ErrorIs(t, err, models.ErrUnsupportedPlatform)
}
