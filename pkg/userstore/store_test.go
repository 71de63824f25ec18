package userstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func TestNewStoreStartsLoadingWithoutUser(t *testing.T) {
	state := New().Snapshot()
	require.True(t, state.Loading)
	require.False(t, state.SignedIn())
}

func TestSetUserClearsLoading(t *testing.T) {
	store := New()
	store.SetUser(&User{ID: "u1", FullName: "Meena", Role: "farmer"})

	state := store.Snapshot()
	require.False(t, state.Loading)
	require.Equal(t, "Meena", state.User.FullName)
}

func TestUpdateUserOnEmptyStoreIsNoop(t *testing.T) {
	store := New()
	store.SetLoading(false)

	store.UpdateUser(Patch{FullName: strPtr("X")})

	require.Nil(t, store.Snapshot().User)
}

func TestUpdateUserMergesOnlyGivenFields(t *testing.T) {
	store := New()
	store.SetUser(&User{ID: "u1", FullName: "Meena", Email: "meena@example.com", Role: "farmer", Locale: "ta"})

	store.UpdateUser(Patch{FullName: strPtr("X")})

	user := store.Snapshot().User
	require.Equal(t, "X", user.FullName)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "meena@example.com", user.Email)
	require.Equal(t, "farmer", user.Role)
	require.Equal(t, "ta", user.Locale)
}

func TestSetLoadingKeepsUser(t *testing.T) {
	store := New()
	store.SetUser(&User{ID: "u1"})
	store.SetLoading(true)

	state := store.Snapshot()
	require.True(t, state.Loading)
	require.Equal(t, "u1", state.User.ID)
}

func TestLogoutClearsUser(t *testing.T) {
	store := New()
	store.SetUser(&User{ID: "u1"})
	store.Logout()

	state := store.Snapshot()
	require.False(t, state.SignedIn())
	require.False(t, state.Loading)
}

func TestSnapshotIsDetached(t *testing.T) {
	store := New()
	original := &User{ID: "u1", FullName: "Ravi"}
	store.SetUser(original)

	original.FullName = "mutated caller copy"
	snap := store.Snapshot()
	snap.User.FullName = "mutated snapshot"

	require.Equal(t, "Ravi", store.Snapshot().User.FullName)
}

func TestConcurrentWritersLastWriteWins(t *testing.T) {
	store := New()
	store.SetUser(&User{ID: "u1"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.UpdateUser(Patch{Phone: strPtr("+91-0000")})
			_ = store.Snapshot()
		}()
	}
	wg.Wait()

	require.Equal(t, "+91-0000", store.Snapshot().User.Phone)
}
