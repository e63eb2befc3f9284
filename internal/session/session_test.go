package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bistro/internal/api"
	"github.com/roach88/bistro/internal/bus"
	"github.com/roach88/bistro/internal/store"
	"github.com/roach88/bistro/internal/testutil"
)

type fixture struct {
	fake    *testutil.FakeAPI
	storage *store.Store
	client  *api.Client
	bus     *bus.Bus
	events  []bus.Event
	sess    *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storage, err := store.Open(filepath.Join(t.TempDir(), "bistro.db"))
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	f := &fixture{fake: testutil.NewFakeAPI(t), storage: storage, bus: bus.New(nil)}
	f.bus.Subscribe(func(_ context.Context, e bus.Event) error {
		f.events = append(f.events, e)
		return nil
	})
	f.reopen()
	return f
}

// reopen simulates a process restart against the same storage.
func (f *fixture) reopen() {
	f.client = api.New(f.fake.URL(), StoredToken(f.storage))
	f.sess = New(f.client, f.storage, f.bus, nil)
	f.client.OnAuthRejected(f.sess.Expire)
}

func (f *fixture) drain() []bus.Event {
	f.bus.DispatchPending(context.Background())
	out := f.events
	f.events = nil
	return out
}

func (f *fixture) persisted(t *testing.T) (Record, bool) {
	t.Helper()
	var rec Record
	ok, err := f.storage.GetJSON(context.Background(), store.KeyAuth, &rec)
	require.NoError(t, err)
	return rec, ok
}

func TestLogin_PersistsServerToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.fake.AddUser("Ann", "a@b.com", "Aa1!aaaa", "user")

	rec, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "Aa1!aaaa"})
	require.NoError(t, err)

	assert.True(t, f.sess.IsAuthenticated())
	assert.Equal(t, id, f.sess.Identity().ID)
	assert.Equal(t, "Ann", f.sess.Identity().Name)

	stored, ok := f.persisted(t)
	require.True(t, ok)
	assert.Equal(t, rec.Token, stored.Token)
	assert.Equal(t, f.sess.Credential(), stored.Token)

	assert.Equal(t, []bus.Event{{Kind: bus.Authenticated, Reason: bus.ReasonLogin}}, f.drain())
}

func TestLogin_ProfileFetchUsesNewToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")

	rec, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)

	reqs := f.fake.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/users/profile", reqs[1].Path)
	assert.Equal(t, "Bearer "+rec.Token, reqs[1].Authorization)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")

	_, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "wrong"})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
	assert.False(t, f.sess.IsAuthenticated())
	assert.Empty(t, f.drain())
}

func TestLogin_FallbackIdentityFromToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.fake.AddUser("Boss", "boss@b.com", "pw", "admin")
	f.fake.SetProfileUnavailable(true)

	_, err := f.sess.Login(ctx, api.Credentials{Email: "boss@b.com", Password: "pw"})
	require.NoError(t, err)

	identity := f.sess.Identity()
	require.NotNil(t, identity)
	assert.Equal(t, id, identity.ID)
	assert.Equal(t, "boss@b.com", identity.Email)
	assert.Equal(t, api.RoleAdmin, identity.Role)
	assert.True(t, f.sess.IsAdmin())
}

func TestRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")

	rec, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, f.sess.UpdateIdentity(ctx, api.User{Name: "Annie"}))
	f.drain()

	f.reopen()
	assert.False(t, f.sess.IsAuthenticated())
	require.NoError(t, f.sess.Restore(ctx))

	assert.False(t, f.sess.Initializing())
	assert.Equal(t, rec.Token, f.sess.Credential())
	assert.Equal(t, "Annie", f.sess.Identity().Name)
	assert.Equal(t, rec.User.ID, f.sess.Identity().ID)
	assert.Equal(t, []bus.Event{{Kind: bus.Authenticated, Reason: bus.ReasonRestore}}, f.drain())
}

func TestRestore_NothingPersisted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sess.Restore(context.Background()))
	assert.False(t, f.sess.IsAuthenticated())
	assert.False(t, f.sess.Initializing())
	assert.Empty(t, f.drain())
}

func TestRestore_MissingIDIsCompletedFromProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.fake.AddUser("Ann", "a@b.com", "pw", "user")

	rec, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, f.storage.PutJSON(ctx, store.KeyAuth, Record{User: &api.User{Email: "a@b.com"}, Token: rec.Token}))

	f.reopen()
	require.NoError(t, f.sess.Restore(ctx))

	assert.Equal(t, id, f.sess.Identity().ID)
	assert.Equal(t, "Ann", f.sess.Identity().Name)
	stored, ok := f.persisted(t)
	require.True(t, ok)
	assert.Equal(t, id, stored.User.ID)
}

func TestRestore_ProfileFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")
	rec, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	require.NoError(t, f.storage.PutJSON(ctx, store.KeyAuth, Record{User: &api.User{Email: "a@b.com"}, Token: rec.Token}))
	f.fake.SetProfileUnavailable(true)

	f.reopen()
	require.NoError(t, f.sess.Restore(ctx))
	assert.True(t, f.sess.IsAuthenticated())
	assert.Empty(t, f.sess.Identity().ID)
	assert.False(t, f.sess.Initializing())
}

func TestRestore_RejectedCredentialExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.PutJSON(ctx, store.KeyAuth, Record{User: &api.User{Email: "a@b.com"}, Token: "revoked"}))

	require.NoError(t, f.sess.Restore(ctx))
	assert.False(t, f.sess.IsAuthenticated())
	_, ok := f.persisted(t)
	assert.False(t, ok)
	assert.Equal(t, []bus.Event{
		{Kind: bus.Authenticated, Reason: bus.ReasonRestore},
		{Kind: bus.Unauthenticated, Reason: bus.ReasonExpired},
	}, f.drain())
}

func TestRestore_MalformedRecordIsDeleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.storage.Put(ctx, store.KeyAuth, "{not json"))

	require.NoError(t, f.sess.Restore(ctx))
	assert.False(t, f.sess.IsAuthenticated())
	_, ok, err := f.storage.Get(ctx, store.KeyAuth)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogout_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")
	_, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	f.drain()

	require.NoError(t, f.sess.Logout(ctx))
	assert.False(t, f.sess.IsAuthenticated())
	assert.Nil(t, f.sess.Identity())
	_, ok := f.persisted(t)
	assert.False(t, ok)
	assert.Equal(t, []bus.Event{{Kind: bus.Unauthenticated, Reason: bus.ReasonLogout}}, f.drain())

	// Logging out twice publishes nothing new.
	require.NoError(t, f.sess.Logout(ctx))
	assert.Empty(t, f.drain())
}

func TestExpire_IgnoresStaleToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")
	_, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	f.drain()

	f.sess.Expire(ctx, "some-older-token")
	assert.True(t, f.sess.IsAuthenticated())
	assert.Empty(t, f.drain())
}

func TestExpire_OnRejectedRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")
	_, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	f.drain()

	f.fake.RevokeTokens()
	_, err = f.client.GetCart(ctx)
	require.True(t, api.IsAuthRejected(err))

	assert.False(t, f.sess.IsAuthenticated())
	_, ok := f.persisted(t)
	assert.False(t, ok)
	assert.Equal(t, []bus.Event{{Kind: bus.Unauthenticated, Reason: bus.ReasonExpired}}, f.drain())
}

func TestRegister_AutoLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	resp, err := f.sess.Register(ctx, api.Registration{Name: "Ann", Email: "a@b.com", Password: "Aa1!aaaa", Phone: "5551234"})
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	assert.True(t, f.sess.IsAuthenticated())
	assert.Equal(t, "Ann", f.sess.Identity().Name)
}

func TestRegister_AutoLoginFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.FailNext("POST", "/auth/login", 503, "login service down")

	resp, err := f.sess.Register(ctx, api.Registration{Name: "Ann", Email: "a@b.com", Password: "Aa1!aaaa"})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.False(t, f.sess.IsAuthenticated())
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")

	_, err := f.sess.Register(ctx, api.Registration{Name: "Ann", Email: "a@b.com", Password: "pw"})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Email already exists", reqErr.Message)
}

func TestUpdateIdentity_RequiresSession(t *testing.T) {
	f := newFixture(t)
	err := f.sess.UpdateIdentity(context.Background(), api.User{Name: "x"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestUpdateProfile_MergesNameAndPhone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")
	_, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)

	updated, err := f.sess.UpdateProfile(ctx, api.ProfileUpdate{Name: "Annie", Phone: "55512345"})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, api.Phone("55512345"), updated.Phone)

	stored, ok := f.persisted(t)
	require.True(t, ok)
	assert.Equal(t, "Annie", stored.User.Name)
}

func TestUpdateProfile_WrongCurrentPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.AddUser("Ann", "a@b.com", "pw", "user")
	_, err := f.sess.Login(ctx, api.Credentials{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)

	_, err = f.sess.UpdateProfile(ctx, api.ProfileUpdate{Password: "New1!pass", CurrentPassword: "nope"})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "Current password is incorrect", reqErr.Message)
}

func TestStoredToken_ReadsPersistedRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tokens := StoredToken(f.storage)

	tok, err := tokens.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, f.storage.PutJSON(ctx, store.KeyAuth, Record{Token: "abc"}))
	tok, err = tokens.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, f.storage.Put(ctx, store.KeyAuth, "garbage"))
	tok, err = tokens.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}
