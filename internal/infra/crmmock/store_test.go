package crmmock

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken(t *testing.T) {
	s := NewStore()

	token, err := s.IssueToken("dummy", "dummy")
	require.NoError(t, err)
	assert.Equal(t, "mock_token", token)
	assert.True(t, s.ValidToken(token))

	_, err = s.IssueToken("dummy", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, s.ValidToken("other"))
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s := NewStore()

	first := s.Create("Ada", "a@x.com", "1")
	second := s.Create("Grace", "g@x.com", "2")

	assert.Equal(t, "CRM1", first.CRMID)
	assert.Equal(t, "CRM2", second.CRMID)

	got, err := s.Get("CRM2")
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestGetUnknown(t *testing.T) {
	_, err := NewStore().Get("CRM9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConcurrentIDsAreUnique(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Create("u", fmt.Sprintf("u%d@x.com", i), "1")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
	_, err := s.Get("CRM50")
	assert.NoError(t, err)
}
