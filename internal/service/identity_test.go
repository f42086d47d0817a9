package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bcryptadapter "github.com/target/auth-svc/internal/adapters/bcrypt"
	jwtadapter "github.com/target/auth-svc/internal/adapters/jwt"
	"github.com/target/auth-svc/internal/adapters/memstore"
	"github.com/target/auth-svc/internal/devseed"
	domainauth "github.com/target/auth-svc/internal/domain/auth"
	"github.com/target/auth-svc/internal/mocks"
	"github.com/target/auth-svc/internal/ports"
	"github.com/target/auth-svc/internal/testutil"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

// countingHasher records how many comparisons were performed.
type countingHasher struct {
	ports.PasswordHasher
	compares atomic.Int32
}

func (h *countingHasher) Compare(hash, password string) error {
	h.compares.Add(1)
	return h.PasswordHasher.Compare(hash, password)
}

type identityFixture struct {
	svc    *IdentityService
	clock  *testutil.TestTimeProvider
	hasher *countingHasher
	codec  *jwtadapter.Codec
}

func newFixture(t *testing.T, store ports.CredentialStore) identityFixture {
	t.Helper()
	codec, err := jwtadapter.NewCodec(jwtadapter.Config{Secret: []byte(testSecret), Algorithm: "HS256"})
	require.NoError(t, err)
	hasher := &countingHasher{PasswordHasher: bcryptadapter.NewHasher(bcrypt.MinCost)}
	clock := testutil.NewTestTimeProvider(testutil.TestTime())

	svc, err := NewIdentityService(IdentityServiceOptions{
		Ports:  IdentityPorts{Store: store, Hasher: hasher, Codec: codec},
		Config: IdentityConfig{TTL: 30 * time.Minute, Issuer: "auth-svc", Now: clock.Now},
		Logger: testutil.DiscardLogger(),
	})
	require.NoError(t, err)
	hasher.compares.Store(0)
	return identityFixture{svc: svc, clock: clock, hasher: hasher, codec: codec}
}

func demoStore(t *testing.T) *memstore.Store {
	t.Helper()
	records, err := devseed.BuildRecords(bcryptadapter.NewHasher(bcrypt.MinCost), devseed.DemoAccounts())
	require.NoError(t, err)
	store, err := memstore.NewStore(records...)
	require.NoError(t, err)
	return store
}

func TestNewIdentityService_Validation(t *testing.T) {
	codec, err := jwtadapter.NewCodec(jwtadapter.Config{Secret: []byte(testSecret), Algorithm: "HS256"})
	require.NoError(t, err)
	hasher := bcryptadapter.NewHasher(bcrypt.MinCost)
	store := mocks.NewMockCredentialStore(gomock.NewController(t))
	cfg := IdentityConfig{TTL: time.Minute}

	tests := []struct {
		name string
		opts IdentityServiceOptions
	}{
		{name: "missing store", opts: IdentityServiceOptions{Ports: IdentityPorts{Hasher: hasher, Codec: codec}, Config: cfg}},
		{name: "missing hasher", opts: IdentityServiceOptions{Ports: IdentityPorts{Store: store, Codec: codec}, Config: cfg}},
		{name: "missing codec", opts: IdentityServiceOptions{Ports: IdentityPorts{Store: store, Hasher: hasher}, Config: cfg}},
		{name: "zero ttl", opts: IdentityServiceOptions{Ports: IdentityPorts{Store: store, Hasher: hasher, Codec: codec}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIdentityService(tt.opts)
			require.Error(t, err)
		})
	}
}

func TestIdentityService_Authenticate_ReturnsStoredRoles(t *testing.T) {
	f := newFixture(t, demoStore(t))

	for _, acct := range devseed.DemoAccounts() {
		t.Run(acct.Identifier, func(t *testing.T) {
			rec, err := f.svc.Authenticate(context.Background(), acct.Identifier, acct.Password)
			require.NoError(t, err)
			assert.Equal(t, acct.Identifier, rec.Identifier)
			assert.Equal(t, acct.Roles, rec.Roles)
		})
	}
}

func TestIdentityService_Authenticate_UniformFailure(t *testing.T) {
	f := newFixture(t, demoStore(t))
	ctx := context.Background()

	_, unknownErr := f.svc.Authenticate(ctx, "nobody@example.com", "admin123")
	unknownCompares := f.hasher.compares.Swap(0)

	_, wrongErr := f.svc.Authenticate(ctx, "admin@example.com", "wrong")
	wrongCompares := f.hasher.compares.Swap(0)

	require.ErrorIs(t, unknownErr, domainauth.ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, domainauth.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Equal(t, int32(1), unknownCompares)
	assert.Equal(t, wrongCompares, unknownCompares)
}

func TestIdentityService_Authenticate_EmptyInputs(t *testing.T) {
	// No EXPECT: the store must not be consulted.
	store := mocks.NewMockCredentialStore(gomock.NewController(t))
	f := newFixture(t, store)

	_, err := f.svc.Authenticate(context.Background(), "", "pw")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
	_, err = f.svc.Authenticate(context.Background(), "user@example.com", "")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestIdentityService_Authenticate_StoreFailure(t *testing.T) {
	store := mocks.NewMockCredentialStore(gomock.NewController(t))
	f := newFixture(t, store)
	boom := errors.New("connection refused")

	store.EXPECT().FindByIdentifier(gomock.Any(), "user@example.com").Return(domainauth.CredentialRecord{}, boom)

	_, err := f.svc.Authenticate(context.Background(), "user@example.com", "user123")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestIdentityService_Authenticate_UnusableRecord(t *testing.T) {
	store := mocks.NewMockCredentialStore(gomock.NewController(t))
	f := newFixture(t, store)
	hash, err := bcryptadapter.NewHasher(bcrypt.MinCost).Hash("pw")
	require.NoError(t, err)

	store.EXPECT().FindByIdentifier(gomock.Any(), "norole@example.com").
		Return(domainauth.CredentialRecord{Identifier: "norole@example.com", PasswordHash: hash}, nil)

	_, err = f.svc.Authenticate(context.Background(), "norole@example.com", "pw")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestIdentityService_IssueAndValidate(t *testing.T) {
	f := newFixture(t, demoStore(t))

	tests := []struct {
		name  string
		id    string
		roles []domainauth.Role
	}{
		{name: "admin", id: "admin@example.com", roles: []domainauth.Role{"admin", "moderator", "expert", "user"}},
		{name: "single role", id: "user@example.com", roles: []domainauth.Role{"user"}},
		{name: "no roles", id: "svc@example.com", roles: []domainauth.Role{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issued, err := f.svc.IssueTokenTTL(tt.id, tt.roles, 5*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, TokenTypeBearer, issued.TokenType)
			assert.Equal(t, testutil.TestTime().Add(5*time.Minute), issued.ExpiresAt)

			p, err := f.svc.ValidateToken(issued.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tt.id, p.Identifier)
			assert.Equal(t, tt.roles, p.Roles)
		})
	}
}

func TestIdentityService_IssueTokenTTL_Rejects(t *testing.T) {
	f := newFixture(t, demoStore(t))

	_, err := f.svc.IssueTokenTTL("user@example.com", nil, 0)
	require.Error(t, err)
	_, err = f.svc.IssueTokenTTL("user@example.com", nil, -time.Second)
	require.Error(t, err)
	_, err = f.svc.IssueTokenTTL("", []domainauth.Role{"user"}, time.Minute)
	require.Error(t, err)
	_, err = f.svc.IssueTokenTTL("user@example.com", nil, 500*time.Millisecond)
	require.Error(t, err)
}

func TestIdentityService_IssueTokenTTL_FractionalClock(t *testing.T) {
	f := newFixture(t, demoStore(t))
	f.clock.SetTime(testutil.TestTime().Add(700 * time.Millisecond))

	issued, err := f.svc.IssueTokenTTL("user@example.com", []domainauth.Role{"user"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, testutil.TestTime().Add(time.Second), issued.ExpiresAt)

	claims, err := f.codec.Decode(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, issued.ExpiresAt, claims.ExpiresAt)
	assert.Equal(t, testutil.TestTime(), claims.IssuedAt)

	_, err = f.svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)

	f.clock.SetTime(testutil.TestTime().Add(time.Second))
	_, err = f.svc.ValidateToken(issued.AccessToken)
	kind, ok := domainauth.TokenFailure(err)
	require.True(t, ok)
	assert.Equal(t, domainauth.TokenExpired, kind)
}

func TestIdentityService_ValidateToken_Expiry(t *testing.T) {
	f := newFixture(t, demoStore(t))
	issued, err := f.svc.IssueTokenTTL("user@example.com", []domainauth.Role{"user"}, time.Minute)
	require.NoError(t, err)

	f.clock.AddTime(59 * time.Second)
	_, err = f.svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)

	f.clock.AddTime(time.Second)
	_, err = f.svc.ValidateToken(issued.AccessToken)
	require.ErrorIs(t, err, domainauth.ErrInvalidToken)
	kind, ok := domainauth.TokenFailure(err)
	require.True(t, ok)
	assert.Equal(t, domainauth.TokenExpired, kind)
}

func TestIdentityService_ValidateToken_ForgedPayload(t *testing.T) {
	f := newFixture(t, demoStore(t))
	issued, err := f.svc.IssueToken("user@example.com", []domainauth.Role{"user"})
	require.NoError(t, err)

	parts := strings.Split(issued.AccessToken, ".")
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["roles"] = []string{"admin"}
	forged, err := json.Marshal(payload)
	require.NoError(t, err)
	token := parts[0] + "." + base64.RawURLEncoding.EncodeToString(forged) + "." + parts[2]

	_, err = f.svc.ValidateToken(token)
	require.ErrorIs(t, err, domainauth.ErrInvalidToken)
	assert.ErrorIs(t, err, gojwt.ErrTokenSignatureInvalid)
}

func TestIdentityService_ValidateToken_Malformed(t *testing.T) {
	f := newFixture(t, demoStore(t))

	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := f.svc.ValidateToken(token)
		kind, ok := domainauth.TokenFailure(err)
		require.True(t, ok, token)
		assert.Equal(t, domainauth.TokenMalformed, kind)
	}
}

func TestIdentityService_ValidateToken_InvalidSubject(t *testing.T) {
	f := newFixture(t, demoStore(t))
	token, err := f.codec.Encode(domainauth.TokenClaims{
		Roles:     []domainauth.Role{"admin"},
		ExpiresAt: testutil.TestTime().Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(token)
	kind, ok := domainauth.TokenFailure(err)
	require.True(t, ok)
	assert.Equal(t, domainauth.TokenInvalidSubject, kind)
}

func TestIdentityService_ValidateToken_OtherSecret(t *testing.T) {
	f := newFixture(t, demoStore(t))
	other, err := jwtadapter.NewCodec(jwtadapter.Config{Secret: []byte("other"), Algorithm: "HS256"})
	require.NoError(t, err)
	token, err := other.Encode(domainauth.TokenClaims{
		Subject:   "admin@example.com",
		Roles:     []domainauth.Role{"admin"},
		ExpiresAt: testutil.TestTime().Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = f.svc.ValidateToken(token)
	require.ErrorIs(t, err, domainauth.ErrInvalidToken)
}

func TestIdentityService_Login(t *testing.T) {
	f := newFixture(t, demoStore(t))
	ctx := context.Background()

	issued, err := f.svc.Login(ctx, "expert@example.com", "expert123")
	require.NoError(t, err)
	assert.Equal(t, testutil.TestTime().Add(30*time.Minute), issued.ExpiresAt)

	p, err := f.svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "expert@example.com", p.Identifier)
	assert.Equal(t, []domainauth.Role{"expert", "user"}, p.Roles)

	_, err = f.svc.Login(ctx, "expert@example.com", "nope")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)
}

func TestIdentityService_ConcurrentUse(t *testing.T) {
	codec, err := jwtadapter.NewCodec(jwtadapter.Config{Secret: []byte(testSecret), Algorithm: "HS256"})
	require.NoError(t, err)
	svc, err := NewIdentityService(IdentityServiceOptions{
		Ports: IdentityPorts{
			Store:  demoStore(t),
			Hasher: bcryptadapter.NewHasher(bcrypt.MinCost),
			Codec:  codec,
		},
		Config: IdentityConfig{TTL: time.Minute, Now: testutil.FixedTimeFunc(testutil.TestTime())},
		Logger: testutil.DiscardLogger(),
	})
	require.NoError(t, err)

	accounts := []struct {
		id, password string
		admin        bool
	}{
		{id: "admin@example.com", password: "admin123", admin: true},
		{id: "expert@example.com", password: "expert123"},
		{id: "user@example.com", password: "user123"},
	}

	const workers = 24
	ctx := context.Background()
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		acct := accounts[i%len(accounts)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, loginErr := svc.Login(ctx, acct.id, "wrong"); !errors.Is(loginErr, domainauth.ErrInvalidCredentials) {
				errs <- fmt.Errorf("%s: wrong password: %v", acct.id, loginErr)
				return
			}
			issued, loginErr := svc.Login(ctx, acct.id, acct.password)
			if loginErr != nil {
				errs <- fmt.Errorf("%s: login: %w", acct.id, loginErr)
				return
			}
			p, valErr := svc.ValidateToken(issued.AccessToken)
			if valErr != nil {
				errs <- fmt.Errorf("%s: validate: %w", acct.id, valErr)
				return
			}
			if p.Identifier != acct.id {
				errs <- fmt.Errorf("%s: got principal %s", acct.id, p.Identifier)
				return
			}
			_, roleErr := domainauth.RequireAnyRole(p, domainauth.RoleAdmin)
			if acct.admin != (roleErr == nil) {
				errs <- fmt.Errorf("%s: admin gate returned %v", acct.id, roleErr)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}
